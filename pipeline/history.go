package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"herobook_back/hero"
)

// JobRecord is one completed or failed generation job, kept for the
// dashboard history list.
type JobRecord struct {
	ID            uint           `gorm:"primaryKey" json:"-"`
	JobID         string         `gorm:"size:64;uniqueIndex" json:"jobId"`
	SessionID     string         `gorm:"size:128;index" json:"-"`
	HeroName      string         `gorm:"size:128" json:"heroName"`
	Status        State          `gorm:"size:16" json:"status"`
	Customization datatypes.JSON `json:"customization"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// History persists finished jobs. It is optional; without a configured
// database every method is a no-op.
type History struct {
	db *gorm.DB
}

// NewHistoryFromEnv connects to the database named by DATABASE_DSN and
// migrates the job table. An empty DSN disables history entirely.
func NewHistoryFromEnv() (*History, error) {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if dsn == "" {
		return nil, nil
	}

	driver := strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))
	if driver == "" {
		driver = inferDriverFromDSN(dsn)
		if driver == "" {
			return nil, fmt.Errorf("pipeline: DATABASE_DRIVER is required when the DSN has no scheme")
		}
	}

	db, err := openDatabase(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open database: %w", err)
	}
	if err := db.AutoMigrate(&JobRecord{}); err != nil {
		return nil, fmt.Errorf("pipeline: migrate job history: %w", err)
	}
	return &History{db: db}, nil
}

func openDatabase(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{NowFunc: func() time.Time { return time.Now().UTC() }}
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pg":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "sqlite", "sqlite3":
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("pipeline: unsupported database driver %q", driver)
	}
}

func inferDriverFromDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"), strings.Contains(lower, "://mysql"):
		return "mysql"
	case strings.HasPrefix(lower, "sqlite://"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return "sqlite"
	default:
		return ""
	}
}

// Record upserts the outcome of a job.
func (h *History) Record(ctx context.Context, jobID, sessionID string, custom hero.Customization, status State) error {
	if h == nil {
		return nil
	}

	snapshot, err := json.Marshal(custom)
	if err != nil {
		return fmt.Errorf("pipeline: marshal customization: %w", err)
	}

	record := JobRecord{
		JobID:         jobID,
		SessionID:     sessionID,
		HeroName:      custom.HeroName,
		Status:        status,
		Customization: datatypes.JSON(snapshot),
	}
	err = h.db.WithContext(ctx).
		Where(&JobRecord{JobID: jobID}).
		Assign(map[string]any{
			"session_id":    record.SessionID,
			"hero_name":     record.HeroName,
			"status":        record.Status,
			"customization": record.Customization,
		}).
		FirstOrCreate(&record).Error
	if err != nil {
		return fmt.Errorf("pipeline: record job: %w", err)
	}
	return nil
}

// List returns a session's jobs, most recent first.
func (h *History) List(ctx context.Context, sessionID string, limit int) ([]JobRecord, error) {
	if h == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var records []JobRecord
	err := h.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("pipeline: list jobs: %w", err)
	}
	return records, nil
}

// Purge removes every record tied to a session.
func (h *History) Purge(ctx context.Context, sessionID string) error {
	if h == nil {
		return nil
	}
	if err := h.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&JobRecord{}).Error; err != nil {
		return fmt.Errorf("pipeline: purge jobs: %w", err)
	}
	return nil
}
