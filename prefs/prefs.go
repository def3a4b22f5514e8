package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"herobook_back/cache"
)

const (
	keyPrefix   = "herobook:settings:"
	settingsTTL = 30 * 24 * time.Hour

	// SchemaVersion bumps whenever the settings shape changes; loads of
	// older or unknown versions rebuild from defaults.
	SchemaVersion = 1
)

// Theme and quality enums.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeBlack = "black"

	QualityNormal = "normal"
	QualityEco    = "eco"
)

// AppSettings are the user-facing preferences, stored independently of the
// wizard session so a reset never wipes them.
type AppSettings struct {
	SchemaVersion     int    `json:"schemaVersion"`
	Theme             string `json:"theme"`
	EnableAnimations  bool   `json:"enableAnimations"`
	GenerationQuality string `json:"generationQuality"`
	EnableSounds      bool   `json:"enableSounds"`
}

// DefaultSettings returns the factory configuration.
func DefaultSettings() AppSettings {
	return AppSettings{
		SchemaVersion:     SchemaVersion,
		Theme:             ThemeLight,
		EnableAnimations:  true,
		GenerationQuality: QualityNormal,
		EnableSounds:      false,
	}
}

// migrate runs one pass over loaded settings: unknown schema versions are
// rebuilt wholesale, invalid enum values reset field by field.
func migrate(s AppSettings) AppSettings {
	if s.SchemaVersion != SchemaVersion {
		return DefaultSettings()
	}
	switch s.Theme {
	case ThemeLight, ThemeDark, ThemeBlack:
	default:
		s.Theme = ThemeLight
	}
	switch s.GenerationQuality {
	case QualityNormal, QualityEco:
	default:
		s.GenerationQuality = QualityNormal
	}
	return s
}

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Store persists per-user settings in redis.
type Store struct {
	kv kv
}

// NewStore wraps a key-value backend.
func NewStore(backend kv) *Store {
	return &Store{kv: backend}
}

// NewStoreFromEnv connects the store to the shared redis client.
func NewStoreFromEnv() (*Store, error) {
	client, err := cache.GetRedisClient()
	if err != nil {
		return nil, fmt.Errorf("prefs: connect redis: %w", err)
	}
	return NewStore(redisKV{client: client}), nil
}

// Load returns the user's settings, repaired and defaulted. A missing or
// corrupted record yields the defaults; only backend failures error.
func (s *Store) Load(ctx context.Context, userID string) (AppSettings, error) {
	raw, err := s.kv.Get(ctx, keyPrefix+userID)
	if errors.Is(err, redis.Nil) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return AppSettings{}, fmt.Errorf("prefs: load settings: %w", err)
	}

	var settings AppSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		log.Printf("prefs: discarding corrupted settings for %s: %v", userID, err)
		return DefaultSettings(), nil
	}
	return migrate(settings), nil
}

// Save migrates and persists the settings, returning what was stored.
func (s *Store) Save(ctx context.Context, userID string, settings AppSettings) (AppSettings, error) {
	settings.SchemaVersion = SchemaVersion
	settings = migrate(settings)

	payload, err := json.Marshal(settings)
	if err != nil {
		return AppSettings{}, fmt.Errorf("prefs: marshal settings: %w", err)
	}
	if err := s.kv.Set(ctx, keyPrefix+userID, string(payload), settingsTTL); err != nil {
		return AppSettings{}, fmt.Errorf("prefs: save settings: %w", err)
	}
	return settings, nil
}

type redisKV struct {
	client *redis.Client
}

func (r redisKV) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}
