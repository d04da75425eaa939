package common

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"fraternitybase/registry/internal/constants"
)

// RunLock serializes import runs. Acquire fails with ErrRunInProgress when
// the key is already held; release is safe to call more than once.
type RunLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// ImportLockKey is the lock key for imports into one chapter. Chapter names
// match exactly, so the key keeps their case.
func ImportLockKey(organization, chapter string) string {
	return fmt.Sprintf("import:%s:%s", strings.TrimSpace(organization), strings.TrimSpace(chapter))
}

// LocalRunLock is an in-process RunLock for single-instance deployments and
// the CLI.
type LocalRunLock struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

var _ RunLock = (*LocalRunLock)(nil)

func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{held: make(map[string]time.Time), now: time.Now}
}

func (l *LocalRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, fmt.Errorf("%w: %s", constants.ErrRunInProgress, key)
	}
	expires := now.Add(ttl)
	l.held[key] = expires

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// a reacquired key belongs to someone else now
			if l.held[key].Equal(expires) {
				delete(l.held, key)
			}
		})
	}, nil
}

// release only deletes the key if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock holds locks across processes with SET NX PX.
type RedisRunLock struct {
	client *redis.Client
}

var _ RunLock = (*RedisRunLock)(nil)

func NewRedisRunLock(client *redis.Client) *RedisRunLock {
	return &RedisRunLock{client: client}
}

func (l *RedisRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token, err := lockToken()
	if err != nil {
		return nil, err
	}

	redisKey := string(constants.CachePrefixRunLock) + key
	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrRunInProgress, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
		})
	}, nil
}

func lockToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
