package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionLocker serializes turns within one session. Turns for different
// sessions proceed concurrently; two turns for the same session are applied
// one after the other.
type SessionLocker interface {
	// Lock acquires the session's lock, blocking until it is available or
	// the context is done. The returned function releases the lock.
	Lock(ctx context.Context, sessionID uuid.UUID) (func(), error)
}

// keyedMutexLocker is the in-process SessionLocker. Mutex entries are
// refcounted and removed once the last holder releases.
type keyedMutexLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutexLocker creates an in-process SessionLocker.
func NewKeyedMutexLocker() SessionLocker {
	return &keyedMutexLocker{locks: make(map[uuid.UUID]*sessionLock)}
}

var _ SessionLocker = (*keyedMutexLocker)(nil)

func (l *keyedMutexLocker) Lock(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{ch: make(chan struct{}, 1)}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return func() {
			<-entry.ch
			l.release(sessionID, entry)
		}, nil
	case <-ctx.Done():
		l.release(sessionID, entry)
		return nil, ctx.Err()
	}
}

func (l *keyedMutexLocker) release(sessionID uuid.UUID, entry *sessionLock) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, sessionID)
	}
	l.mu.Unlock()
}

// redisLocker is a SessionLocker backed by Redis SET NX, for deployments
// running more than one engine instance.
type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a Redis-backed SessionLocker. The TTL bounds how
// long a crashed holder can block a session.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) SessionLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLocker{
		client: client,
		ttl:    ttl,
		logger: logger.Named("session-locks"),
	}
}

var _ SessionLocker = (*redisLocker)(nil)

// unlockScript deletes the lock only if the caller still holds it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) Lock(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	key := fmt.Sprintf("session-lock:%s", sessionID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return func() {
		if err := unlockScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("failed to release session lock",
				zap.String("session_id", sessionID.String()),
				zap.Error(err))
		}
	}, nil
}
