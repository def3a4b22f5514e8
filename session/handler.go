package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Module owns the wizard-session endpoints.
type Module struct {
	store *Store
}

// RegisterRoutes bootstraps the session endpoints under /session.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	store, err := NewStoreFromEnv()
	if err != nil {
		return nil, err
	}

	module := &Module{store: store}

	group := router.Group("/session")
	group.GET("/:id", module.handleGet)
	group.PUT("/:id", module.handlePut)
	group.DELETE("/:id", module.handleReset)
	group.GET("/:id/dashboard", module.handleDashboard)

	return module, nil
}

// Store exposes the backing store so other modules can read and persist
// wizard state.
func (m *Module) Store() *Store {
	return m.store
}

func sessionID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return "", false
	}
	return id, true
}

func (m *Module) handleGet(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	st, err := m.store.Load(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		// A new visitor starts a fresh wizard; not an error.
		c.JSON(http.StatusOK, NewState())
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return
	}

	c.JSON(http.StatusOK, st)
}

func (m *Module) handlePut(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var st State
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session payload"})
		return
	}

	m.store.Save(c.Request.Context(), id, &st)
	c.Status(http.StatusNoContent)
}

func (m *Module) handleReset(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := m.store.Reset(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset session"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleDashboard reports the counts the dashboard page renders.
func (m *Module) handleDashboard(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	st, err := m.store.Load(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		st = NewState()
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return
	}

	avatarCount, sceneCount := 0, 0
	if st.Results != nil {
		avatarCount = len(st.Results.Avatars)
		sceneCount = len(st.Results.Scenes)
	}

	c.JSON(http.StatusOK, gin.H{
		"imageCount":  len(st.Images),
		"avatarCount": avatarCount,
		"sceneCount":  sceneCount,
	})
}
