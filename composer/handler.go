package composer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"herobook_back/session"
)

// Module serves the downloadable exports built from a session's results.
type Module struct {
	sessions *session.Store
}

// RegisterRoutes bootstraps the export endpoints under /session/:id/export.
func RegisterRoutes(router *gin.Engine, sessions *session.Module) (*Module, error) {
	module := &Module{sessions: sessions.Store()}

	group := router.Group("/session/:id/export")
	group.GET("/avatars", module.handleAvatarCollage)
	group.GET("/collection", module.handleCollectionCollage)
	group.GET("/card", module.handleCard)
	group.GET("/comic", module.handleComic)

	return module, nil
}

// loadResults fetches the session and requires completed results.
func (m *Module) loadResults(c *gin.Context) (*session.State, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return nil, false
	}

	st, err := m.sessions.Load(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return nil, false
	}
	if st.Results == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "session has no results to export"})
		return nil, false
	}
	return st, true
}

func (m *Module) handleAvatarCollage(c *gin.Context) {
	st, ok := m.loadResults(c)
	if !ok {
		return
	}

	urls := make([]string, 0, len(st.Results.Avatars))
	for _, a := range st.Results.Avatars {
		urls = append(urls, a.URL)
	}

	data, err := Collage(urls, CollageBlack)
	if err != nil {
		exportError(c, err)
		return
	}
	serveDownload(c, "image/png", sanitizeName(st.Customization.HeroName, "herobook")+"-avatars.png", data)
}

// handleCollectionCollage exports every avatar and scene in one grid.
func (m *Module) handleCollectionCollage(c *gin.Context) {
	st, ok := m.loadResults(c)
	if !ok {
		return
	}

	urls := make([]string, 0, len(st.Results.Avatars)+len(st.Results.Scenes))
	for _, a := range st.Results.Avatars {
		urls = append(urls, a.URL)
	}
	for _, s := range st.Results.Scenes {
		urls = append(urls, s.URL)
	}

	data, err := Collage(urls, CollageSlate)
	if err != nil {
		exportError(c, err)
		return
	}
	serveDownload(c, "image/png", sanitizeName(st.Customization.HeroName, "herobook")+"-collection.png", data)
}

func (m *Module) handleCard(c *gin.Context) {
	st, ok := m.loadResults(c)
	if !ok {
		return
	}
	if len(st.Results.Avatars) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "session has no avatars to export"})
		return
	}

	avatar := st.Results.Avatars[0]
	if wanted := c.Query("avatar"); wanted != "" {
		found := false
		for _, a := range st.Results.Avatars {
			if a.ID == wanted {
				avatar = a
				found = true
				break
			}
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "avatar not found"})
			return
		}
	}

	data, err := Card(avatar.URL, st.Customization.HeroName)
	if err != nil {
		exportError(c, err)
		return
	}
	serveDownload(c, "image/png", sanitizeName(st.Customization.HeroName, "hero")+"-profile-card.png", data)
}

func (m *Module) handleComic(c *gin.Context) {
	st, ok := m.loadResults(c)
	if !ok {
		return
	}

	data, err := Comic(st.Results.Scenes)
	if err != nil {
		exportError(c, err)
		return
	}
	serveDownload(c, "image/jpeg", "my-hero-comic.jpg", data)
}

func exportError(c *gin.Context, err error) {
	if errors.Is(err, ErrNoImages) {
		c.JSON(http.StatusConflict, gin.H{"error": "nothing exportable in this session"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render the export"})
}

func serveDownload(c *gin.Context, contentType, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// sanitizeName keeps letters, digits, dashes and underscores from a hero
// name; anything else is dropped. An empty result falls back.
func sanitizeName(name, fallback string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
