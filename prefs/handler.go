package prefs

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Module owns the settings endpoints.
type Module struct {
	store *Store
}

// RegisterRoutes bootstraps the settings endpoints under /prefs.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	store, err := NewStoreFromEnv()
	if err != nil {
		return nil, err
	}

	module := &Module{store: store}

	group := router.Group("/prefs")
	group.GET("/:id", module.handleGet)
	group.PUT("/:id", module.handlePut)

	return module, nil
}

func userID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return "", false
	}
	return id, true
}

func (m *Module) handleGet(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	settings, err := m.store.Load(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (m *Module) handlePut(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var settings AppSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}

	saved, err := m.store.Save(c.Request.Context(), id, settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save settings"})
		return
	}
	c.JSON(http.StatusOK, saved)
}
