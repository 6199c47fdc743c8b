package utils

import (
	"context"
	"sync"
	"time"
)

// ScanTracker is the advisory tier of the duplicate guard. It absorbs the
// camera re-detecting the same code across consecutive frames (rolling
// cooldown) and remembers units a session already submitted successfully so
// the user is not walked through the success flow twice.
//
// It is never consulted for correctness: the unique index on
// scanned_units.unit_id is authoritative, and every method here fails open.
// State lives in Redis (scoped keys with explicit TTLs, shared across
// instances and restarts) with an in-memory fallback when Redis is down.
type ScanTracker struct {
	cooldown   time.Duration
	sessionTTL time.Duration

	mu        sync.Mutex
	seen      map[string]time.Time // fallback: unit -> cooldown expiry
	processed map[string]time.Time // fallback: unit -> session expiry
}

// NewScanTracker builds a tracker with the given cooldown window and
// session lifetime.
func NewScanTracker(cooldown, sessionTTL time.Duration) *ScanTracker {
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &ScanTracker{
		cooldown:   cooldown,
		sessionTTL: sessionTTL,
		seen:       map[string]time.Time{},
		processed:  map[string]time.Time{},
	}
}

func trackerKey(kind, sessionKey, unitID string) string {
	return "scan:" + kind + ":" + sessionKey + ":" + unitID
}

// SeenRecently reports whether the same unit was offered by this session
// within the cooldown window, and marks it as seen either way.
func (t *ScanTracker) SeenRecently(ctx context.Context, sessionKey, unitID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx2, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		ok, err := rc.SetNX(ctx2, trackerKey("cooldown", sessionKey, unitID), "1", t.cooldown).Result()
		if err == nil {
			return !ok
		}
	}
	key := sessionKey + ":" + unitID
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, exists := t.seen[key]
	t.seen[key] = now.Add(t.cooldown)
	return exists && now.Before(expiry)
}

// AlreadySubmitted reports whether this session already completed a
// successful submission for the unit.
func (t *ScanTracker) AlreadySubmitted(ctx context.Context, sessionKey, unitID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx2, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := rc.Exists(ctx2, trackerKey("done", sessionKey, unitID)).Result()
		if err == nil {
			return n > 0
		}
	}
	key := sessionKey + ":" + unitID
	t.mu.Lock()
	defer t.mu.Unlock()
	expiry, exists := t.processed[key]
	if !exists {
		return false
	}
	if time.Now().After(expiry) {
		delete(t.processed, key)
		return false
	}
	return true
}

// MarkSubmitted records a successful submission for the session.
func (t *ScanTracker) MarkSubmitted(ctx context.Context, sessionKey, unitID string) {
	if rc := GetRedis(); rc != nil {
		ctx2, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		if err := rc.Set(ctx2, trackerKey("done", sessionKey, unitID), "1", t.sessionTTL).Err(); err == nil {
			return
		}
	}
	key := sessionKey + ":" + unitID
	t.mu.Lock()
	t.processed[key] = time.Now().Add(t.sessionTTL)
	t.mu.Unlock()
}

// PurgeExpired drops expired fallback entries. Redis keys expire on their
// own; this only bounds the in-memory maps.
func (t *ScanTracker) PurgeExpired() {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, expiry := range t.seen {
		if now.After(expiry) {
			delete(t.seen, k)
		}
	}
	for k, expiry := range t.processed {
		if now.After(expiry) {
			delete(t.processed, k)
		}
	}
}

// StartJanitor launches a background goroutine that periodically purges the
// fallback maps. Best-effort.
func (t *ScanTracker) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			time.Sleep(interval)
			t.PurgeExpired()
		}
	}()
}
