package photos

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"herobook_back/session"
	"herobook_back/storage"
)

// Module owns the photo ingest and curation endpoints of the wizard.
type Module struct {
	sessions  *session.Store
	validator *Validator
	archive   *storage.PhotoStorage
}

// RegisterRoutes bootstraps the photo endpoints under /session/:id/photos.
// Object archival stays off when the storage backend is not configured.
func RegisterRoutes(router *gin.Engine, sessions *session.Module) (*Module, error) {
	photoStorage, err := storage.NewPhotoStorageFromEnv()
	if err != nil {
		return nil, err
	}

	module := &Module{
		sessions:  sessions.Store(),
		validator: NewValidator(nil),
		archive:   photoStorage,
	}

	group := router.Group("/session/:id/photos")
	group.GET("", module.handleList)
	group.POST("", module.handleUpload)
	group.POST("/archive", module.handleArchiveUpload)
	group.GET("/archived", module.handleArchivedLinks)
	group.PUT("/order", module.handleReorder)
	group.DELETE("/:photoId", module.handleRemove)

	return module, nil
}

func sessionID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return "", false
	}
	return id, true
}

func (m *Module) loadState(c *gin.Context, id string) (*session.State, bool) {
	st, err := m.sessions.Load(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		return session.NewState(), true
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return nil, false
	}
	return st, true
}

func (m *Module) handleList(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	st, ok := m.loadState(c, id)
	if !ok {
		return
	}
	m.respondImages(c, st)
}

// handleUpload ingests a multipart batch of photos. Each file may carry a
// matching lastModified value so image ids stay stable across reloads.
func (m *Module) handleUpload(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	st, ok := m.loadState(c, id)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart payload"})
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no photos provided"})
		return
	}
	modified := form.Value["lastModified"]

	for i, fileHeader := range files {
		if len(st.Images) >= MaxFiles {
			break
		}
		contentType := fileHeader.Header.Get("Content-Type")
		if !Accepted(contentType) {
			continue
		}

		src, err := fileHeader.Open()
		if err != nil {
			log.Printf("photos: open upload %s: %v", fileHeader.Filename, err)
			continue
		}
		data, err := readEntry(src)
		src.Close()
		if err != nil {
			log.Printf("photos: read upload %s: %v", fileHeader.Filename, err)
			continue
		}

		img := NewImage(fileHeader.Filename, modifiedAt(modified, i), contentType, data)
		if hasImage(st.Images, img.ID) {
			continue
		}
		img.Error = m.validator.Validate(c.Request.Context(), img)
		st.Images = append(st.Images, img)
		m.archivePhoto(c.Request.Context(), id, contentType, data)
	}

	st.Stage = session.StageReview
	m.sessions.Save(c.Request.Context(), id, st)
	m.respondImages(c, st)
}

// handleArchiveUpload ingests a zip or rar batch in one request.
func (m *Module) handleArchiveUpload(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	st, ok := m.loadState(c, id)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("archive")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive file is required"})
		return
	}

	extracted, err := ExtractArchive(fileHeader, modifiedAt(c.PostFormArray("lastModified"), 0), MaxFiles-len(st.Images))
	if errors.Is(err, ErrUnsupportedArchive) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrUnsupportedArchive.Error()})
		return
	}
	if err != nil {
		log.Printf("photos: extract archive: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read the archive"})
		return
	}

	for _, img := range extracted {
		if hasImage(st.Images, img.ID) {
			continue
		}
		img.Error = m.validator.Validate(c.Request.Context(), img)
		st.Images = append(st.Images, img)
		if _, payload, decodeErr := img.Decode(); decodeErr == nil {
			m.archivePhoto(c.Request.Context(), id, "", payload)
		}
	}

	st.Stage = session.StageReview
	m.sessions.Save(c.Request.Context(), id, st)
	m.respondImages(c, st)
}

// handleArchivedLinks returns presigned download links for the originals
// archived in object storage. The links expire; clients fetch fresh ones
// per visit. Without a storage backend the list is empty.
func (m *Module) handleArchivedLinks(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if m.archive == nil {
		c.JSON(http.StatusOK, gin.H{"objects": []gin.H{}})
		return
	}

	ctx := c.Request.Context()
	keys, err := m.archive.ListPrefix(ctx, "sessions", id, "photos")
	if err != nil {
		log.Printf("photos: list archived: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list archived photos"})
		return
	}

	objects := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		url, err := m.archive.PresignedURL(ctx, key, 15*time.Minute)
		if err != nil {
			log.Printf("photos: presign %s: %v", key, err)
			continue
		}
		objects = append(objects, gin.H{"key": key, "url": url})
	}
	c.JSON(http.StatusOK, gin.H{"objects": objects})
}

func (m *Module) handleReorder(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Order []string `json:"order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Order) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order must list photo ids"})
		return
	}

	st, ok := m.loadState(c, id)
	if !ok {
		return
	}

	st.Images = Reorder(st.Images, req.Order)
	m.sessions.Save(c.Request.Context(), id, st)
	m.respondImages(c, st)
}

func (m *Module) handleRemove(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	photoID := strings.TrimSpace(c.Param("photoId"))
	if photoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo id is required"})
		return
	}

	st, ok := m.loadState(c, id)
	if !ok {
		return
	}

	st.Images = Remove(st.Images, photoID)
	m.sessions.Save(c.Request.Context(), id, st)
	m.respondImages(c, st)
}

// respondImages returns the image roster plus the gate the review page
// renders before customization unlocks.
func (m *Module) respondImages(c *gin.Context, st *session.State) {
	c.JSON(http.StatusOK, gin.H{
		"images":     st.Images,
		"validCount": ValidCount(st.Images),
		"minFiles":   MinFiles,
		"maxFiles":   MaxFiles,
		"canProceed": CanProceed(st.Images),
	})
}

// archivePhoto keeps a copy of the original upload in object storage when a
// backend is configured. Failures are logged, never surfaced to the wizard.
func (m *Module) archivePhoto(ctx context.Context, sessionID, contentType string, data []byte) {
	if m.archive == nil {
		return
	}
	if _, err := m.archive.Upload(ctx, data, contentType, "sessions", sessionID, "photos"); err != nil {
		log.Printf("photos: archive upload: %v", err)
	}
}

func modifiedAt(values []string, i int) int64 {
	if i < len(values) {
		if millis, err := strconv.ParseInt(strings.TrimSpace(values[i]), 10, 64); err == nil {
			return millis
		}
	}
	return 0
}

func hasImage(images []session.Image, id string) bool {
	for _, img := range images {
		if img.ID == id {
			return true
		}
	}
	return false
}
