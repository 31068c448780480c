package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"character-quiz/internal/domain"
)

// SessionStore guarda sesiones vivas. Replace es un compare-and-set sobre la
// version: si otra escritura gano la carrera devuelve ErrSessionConflict.
type SessionStore interface {
	Create(ctx context.Context, rec domain.SessionRecord) error
	Get(ctx context.Context, id string) (domain.SessionRecord, error)
	Replace(ctx context.Context, rec domain.SessionRecord, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

type memorySessionItem struct {
	rec       domain.SessionRecord
	expiresAt time.Time
}

type memorySessionStore struct {
	mu        sync.Mutex
	items     map[string]memorySessionItem
	retention time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemorySessionStore guarda sesiones en memoria; retention <= 0 las conserva sin limite.
func NewMemorySessionStore(retention time.Duration) SessionStore {
	return &memorySessionStore{
		items:     make(map[string]memorySessionItem),
		retention: retention,
		now:       time.Now,
	}
}

func (s *memorySessionStore) Create(_ context.Context, rec domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("%w: empty session id", domain.ErrSessionNotFound)
	}
	if _, ok := s.lookup(rec.ID); ok {
		return fmt.Errorf("%w: session %s already exists", domain.ErrSessionConflict, rec.ID)
	}
	s.put(rec)
	return nil
}

func (s *memorySessionStore) Get(_ context.Context, id string) (domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.lookup(id)
	if !ok {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	return cloneRecord(item.rec), nil
}

func (s *memorySessionStore) Replace(_ context.Context, rec domain.SessionRecord, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.lookup(rec.ID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if item.rec.Version != expectedVersion {
		return fmt.Errorf("%w: session %s is at version %d, expected %d", domain.ErrSessionConflict, rec.ID, item.rec.Version, expectedVersion)
	}
	s.put(rec)
	return nil
}

func (s *memorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// lookup asume el lock tomado y descarta entradas vencidas.
func (s *memorySessionStore) lookup(id string) (memorySessionItem, bool) {
	item, ok := s.items[id]
	if !ok {
		return memorySessionItem{}, false
	}
	if !item.expiresAt.IsZero() && s.now().After(item.expiresAt) {
		delete(s.items, id)
		return memorySessionItem{}, false
	}
	return item, true
}

// put asume el lock tomado. Cada escritura barre las sesiones vencidas como
// mucho una vez por periodo de retencion, asi las abandonadas no se acumulan.
func (s *memorySessionStore) put(rec domain.SessionRecord) {
	s.sweep()
	item := memorySessionItem{rec: cloneRecord(rec)}
	if s.retention > 0 {
		item.expiresAt = s.now().Add(s.retention)
	}
	s.items[rec.ID] = item
}

func (s *memorySessionStore) sweep() {
	if s.retention <= 0 {
		return
	}
	now := s.now()
	if !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < s.retention {
		return
	}
	s.lastSweep = now
	for id, item := range s.items {
		if !item.expiresAt.IsZero() && now.After(item.expiresAt) {
			delete(s.items, id)
		}
	}
}

func cloneRecord(rec domain.SessionRecord) domain.SessionRecord {
	out := rec
	out.State = rec.State.Clone()
	return out
}

// Un expected negativo significa "la clave no debe existir" (Create).
// Devuelve 1 si escribio, 0 si la version no coincide, -1 si la clave no existe.
const redisSessionCASScript = `
local cur = redis.call("HGET", KEYS[1], "version")
local expected = tonumber(ARGV[1])
if expected < 0 then
  if cur then return 0 end
else
  if not cur then return -1 end
  if tonumber(cur) ~= expected then return 0 end
end
redis.call("HSET", KEYS[1], "version", ARGV[2], "state", ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call("EXPIRE", KEYS[1], ARGV[4])
end
return 1
`

type redisSessionClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client    redisSessionClient
	retention time.Duration
	prefix    string
}

// NewRedisSessionStore guarda cada sesion en un hash (version + state) con TTL de retencion.
func NewRedisSessionStore(client *redis.Client, retention time.Duration) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client:    client,
		retention: retention,
		prefix:    "quiz:session:",
	}
}

func (s *redisSessionStore) Create(ctx context.Context, rec domain.SessionRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("%w: empty session id", domain.ErrSessionNotFound)
	}
	return s.write(ctx, rec, -1)
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (domain.SessionRecord, error) {
	payload, err := s.client.HGet(ctx, s.prefix+id, "state").Result()
	if errors.Is(err, redis.Nil) {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("redis get session %s: %w", id, err)
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}

func (s *redisSessionStore) Replace(ctx context.Context, rec domain.SessionRecord, expectedVersion int) error {
	if expectedVersion < 0 {
		return fmt.Errorf("%w: negative expected version", domain.ErrSessionConflict)
	}
	return s.write(ctx, rec, expectedVersion)
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", id, err)
	}
	return nil
}

func (s *redisSessionStore) write(ctx context.Context, rec domain.SessionRecord, expectedVersion int) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.ID, err)
	}
	ttl := int(s.retention.Seconds())
	res, err := s.client.Eval(ctx, redisSessionCASScript, []string{s.prefix + rec.ID},
		expectedVersion, rec.Version, string(payload), ttl).Int()
	if err != nil {
		return fmt.Errorf("redis write session %s: %w", rec.ID, err)
	}
	switch res {
	case 1:
		return nil
	case -1:
		return domain.ErrSessionNotFound
	default:
		return fmt.Errorf("%w: session %s changed concurrently", domain.ErrSessionConflict, rec.ID)
	}
}
