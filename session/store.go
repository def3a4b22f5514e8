package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"herobook_back/cache"
)

const (
	sessionKeyPrefix = "herobook:session:"
	sessionTTL       = 7 * 24 * time.Hour

	// Matches the order of magnitude browsers allow a single origin in
	// local storage. Payloads above it skip straight to the slim retry.
	defaultMaxPayloadBytes = 5 << 20
)

// KV is the key-value surface the store needs. Satisfied by the redis
// client; tests substitute an in-memory fake with a capacity limit.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// ErrNotFound reports that no session exists under the requested id.
var ErrNotFound = errors.New("session: not found")

// Store persists wizard sessions in a key-value store with a capacity
// limit. Writes degrade instead of failing: quota pressure drops the bulky
// image/result payloads first and, at worst, the save is skipped with a
// logged warning.
type Store struct {
	kv       KV
	maxBytes int
}

// NewStore builds a Store over the provided KV backend.
func NewStore(kv KV, maxBytes int) *Store {
	if maxBytes <= 0 {
		maxBytes = defaultMaxPayloadBytes
	}
	return &Store{kv: kv, maxBytes: maxBytes}
}

// NewStoreFromEnv wires the Store to the shared redis client.
// SESSION_MAX_BYTES optionally overrides the payload ceiling.
func NewStoreFromEnv() (*Store, error) {
	client, err := cache.GetRedisClient()
	if err != nil {
		return nil, fmt.Errorf("session: redis unavailable: %w", err)
	}

	maxBytes := 0
	if raw := strings.TrimSpace(os.Getenv("SESSION_MAX_BYTES")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			maxBytes = parsed
		}
	}

	return NewStore(redisKV{client: client}, maxBytes), nil
}

// Load fetches and normalizes the session for the given id. A corrupted
// payload counts as absent rather than an error: the wizard restarts, it
// never crashes.
func (s *Store) Load(ctx context.Context, id string) (*State, error) {
	raw, err := s.kv.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: load %q: %w", id, err)
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		log.Printf("session: corrupted payload for %q, discarding: %v", id, err)
		if err := s.kv.Del(ctx, sessionKeyPrefix+id); err != nil {
			log.Printf("session: drop corrupted payload for %q: %v", id, err)
		}
		return nil, ErrNotFound
	}

	st.normalize()
	return &st, nil
}

// Save persists the session. A payload over the byte limit, or a rejected
// write, is retried once with the slim payload; if that also fails the
// error is logged and the session data is dropped. Save never returns an
// error to the caller; losing session data is an accepted degradation.
func (s *Store) Save(ctx context.Context, id string, st *State) {
	if st == nil {
		return
	}

	// The landing page is never a resume target.
	toSave := *st
	if toSave.Stage == StageLanding {
		toSave.Stage = StageDashboard
	}

	if s.write(ctx, id, &toSave, s.maxBytes) {
		return
	}

	log.Printf("session: full payload for %q rejected, retrying without image data", id)
	// The slim payload is the last line of defense and is never size-gated;
	// only the backend can reject it.
	if s.write(ctx, id, toSave.slim(), 0) {
		return
	}
	log.Printf("session: could not save even the slim payload for %q, session data dropped", id)
}

func (s *Store) write(ctx context.Context, id string, st *State, limit int) bool {
	payload, err := json.Marshal(st)
	if err != nil {
		log.Printf("session: marshal payload for %q: %v", id, err)
		return false
	}
	if limit > 0 && len(payload) > limit {
		return false
	}
	if err := s.kv.Set(ctx, sessionKeyPrefix+id, string(payload), sessionTTL); err != nil {
		log.Printf("session: write %q: %v", id, err)
		return false
	}
	return true
}

// Reset removes the session entirely.
func (s *Store) Reset(ctx context.Context, id string) error {
	if err := s.kv.Del(ctx, sessionKeyPrefix+id); err != nil {
		return fmt.Errorf("session: reset %q: %w", id, err)
	}
	return nil
}

// redisKV adapts the go-redis client to the KV interface.
type redisKV struct {
	client *redis.Client
}

func (r redisKV) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r redisKV) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
