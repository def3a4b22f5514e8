package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"herobook_back/generation"
	"herobook_back/photos"
	"herobook_back/session"
	"herobook_back/storage"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ErrImageBusy means another job is already running against the same
// primary image.
var ErrImageBusy = errors.New("pipeline: a job is already running for this image")

// Module owns job orchestration and its endpoints.
type Module struct {
	orchestrator *Orchestrator
	registry     *Registry
	sessions     *session.Store
	history      *History
	objects      *storage.PhotoStorage

	mu      sync.Mutex
	running map[string]string // primary image id -> job id
}

// RegisterRoutes bootstraps the job endpoints. Generation credentials are
// required; job history and object storage stay off when unconfigured.
func RegisterRoutes(router *gin.Engine, sessions *session.Module) (*Module, error) {
	client, err := generation.NewClientFromEnv()
	if err != nil {
		return nil, err
	}
	history, err := NewHistoryFromEnv()
	if err != nil {
		return nil, err
	}
	objects, err := storage.NewPhotoStorageFromEnv()
	if err != nil {
		return nil, err
	}

	module := &Module{
		orchestrator: NewOrchestrator(client),
		registry:     NewRegistry(),
		sessions:     sessions.Store(),
		history:      history,
		objects:      objects,
		running:      make(map[string]string),
	}

	router.POST("/session/:id/jobs", module.handleStart)
	router.GET("/session/:id/jobs/history", module.handleHistory)
	router.GET("/jobs/:jobId", module.handleStatus)
	router.GET("/jobs/:jobId/ws", module.handleWatch)
	router.DELETE("/jobs/:jobId/data", module.handleDeleteData)

	return module, nil
}

func (m *Module) handleStart(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	st, err := m.sessions.Load(c.Request.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusConflict, gin.H{"error": "session has no photos to process"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return
	}
	if len(st.Images) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "session has no photos to process"})
		return
	}
	if !st.Customization.Ready() {
		c.JSON(http.StatusConflict, gin.H{"error": "hero name is required before processing"})
		return
	}
	if !photos.CanProceed(st.Images) {
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("need between %d and %d valid photos, have %d valid of %d uploaded",
				photos.MinFiles, photos.MaxFiles, photos.ValidCount(st.Images), len(st.Images)),
		})
		return
	}

	jobID := uuid.NewString()
	primaryID := st.Images[0].ID
	if err := m.claim(primaryID, jobID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a job is already running for this photo set"})
		return
	}

	st.JobID = jobID
	st.Stage = session.StageProcessing
	m.sessions.Save(c.Request.Context(), sessionID, st)

	status := JobStatus{JobID: jobID, Status: StatePending, CurrentStage: StageUploadingFiles, Log: "Initializing job..."}
	m.registry.Publish(status)
	m.registry.BindSession(jobID, sessionID)

	// The job keeps running even if the browser navigates away; the
	// session carries the job id so the wizard can reattach.
	go m.run(context.Background(), jobID, sessionID, primaryID, st)

	c.JSON(http.StatusAccepted, status)
}

func (m *Module) claim(primaryID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.running[primaryID]; busy {
		return ErrImageBusy
	}
	m.running[primaryID] = jobID
	return nil
}

func (m *Module) release(primaryID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.running, primaryID)
}

func (m *Module) run(ctx context.Context, jobID, sessionID, primaryID string, st *session.State) {
	defer m.release(primaryID)

	results, err := m.orchestrator.Run(ctx, jobID, st.Images, st.Customization, m.registry.Publish)

	outcome := StateSuccess
	if err != nil {
		outcome = StateFailure
	}
	if recordErr := m.history.Record(ctx, jobID, sessionID, st.Customization, outcome); recordErr != nil {
		log.Printf("pipeline: %v", recordErr)
	}
	if err != nil {
		return
	}

	st.Results = results
	st.Stage = session.StageResults
	m.sessions.Save(ctx, sessionID, st)
}

func (m *Module) handleStatus(c *gin.Context) {
	status, ok := m.registry.Status(strings.TrimSpace(c.Param("jobId")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// handleWatch streams every status change over a websocket, starting with
// the current snapshot. The stream closes after a terminal status.
func (m *Module) handleWatch(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("jobId"))
	status, ok := m.registry.Status(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("pipeline: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := m.registry.Watch(jobID)
	defer cancel()

	if err := conn.WriteJSON(status); err != nil {
		return
	}
	if status.Terminal() {
		return
	}

	for {
		select {
		case update := <-updates:
			if err := conn.WriteJSON(update); err != nil {
				return
			}
			if update.Terminal() {
				return
			}
		case <-time.After(30 * time.Second):
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (m *Module) handleHistory(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := m.history.List(c.Request.Context(), sessionID, limit)
	if err != nil {
		log.Printf("pipeline: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load job history"})
		return
	}
	if records == nil {
		records = []JobRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": records})
}

// handleDeleteData erases everything a job produced: the session results,
// the registry entry, the history rows and any archived photos.
func (m *Module) handleDeleteData(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("jobId"))
	sessionID, ok := m.registry.SessionFor(jobID)
	if !ok {
		sessionID = strings.TrimSpace(c.Query("sessionId"))
	}
	if sessionID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	ctx := c.Request.Context()

	st, err := m.sessions.Load(ctx, sessionID)
	if err == nil {
		if st.JobID == jobID {
			st.JobID = ""
		}
		if st.Results != nil && st.Results.JobID == jobID {
			st.Results = nil
		}
		m.sessions.Save(ctx, sessionID, st)
	} else if !errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		return
	}

	m.registry.Forget(jobID)

	if err := m.history.Purge(ctx, sessionID); err != nil {
		log.Printf("pipeline: %v", err)
	}
	if m.objects != nil {
		if err := m.objects.RemovePrefix(ctx, "sessions", sessionID); err != nil {
			log.Printf("pipeline: remove archived photos: %v", err)
		}
	}

	c.Status(http.StatusNoContent)
}
