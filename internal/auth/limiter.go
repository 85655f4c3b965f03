package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	loginWindow      = 15 * time.Minute
	lockDuration     = 10 * time.Minute
	maxLoginAttempts = 5
)

// LoginLimiter はログイン試行の失敗を記録し、一定回数を超えたキーをロックします。
// キーにはクライアントIPを使用します。
type LoginLimiter interface {
	// CheckLock はキーがロック中の場合、残りロック時間を返します（0 なら未ロック）。
	CheckLock(ctx context.Context, key string) (time.Duration, error)
	// RecordFailure は失敗を1回記録し、残り試行回数を返します。
	RecordFailure(ctx context.Context, key string) (int, error)
	// Reset はキーの失敗カウントとロックを消去します。
	Reset(ctx context.Context, key string) error
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// MemoryLimiter は単一プロセス用のインメモリ実装です。
type MemoryLimiter struct {
	lock     sync.Mutex
	attempts map[string]*attemptState
}

// NewMemoryLimiter は MemoryLimiter を作成します。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		attempts: make(map[string]*attemptState),
	}
}

func (l *MemoryLimiter) CheckLock(_ context.Context, key string) (time.Duration, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	state, ok := l.attempts[key]
	if !ok {
		return 0, nil
	}
	now := time.Now()
	if now.After(state.lockedUntil) {
		return 0, nil
	}
	return time.Until(state.lockedUntil), nil
}

func (l *MemoryLimiter) RecordFailure(_ context.Context, key string) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := time.Now()
	state, ok := l.attempts[key]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		l.attempts[key] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
	}

	remaining := maxLoginAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.attempts, key)
	return nil
}

const (
	attemptKeyPrefix = "login:attempts:"
	lockKeyPrefix    = "login:lock:"
)

// RedisLimiter は複数インスタンス間で試行カウントを共有する Redis 実装です。
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter は RedisLimiter を作成します。
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) CheckLock(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.rdb.PTTL(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		return 0, err
	}
	// キー不存在(-2)・TTLなし(-1)はロックなし扱い
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) (int, error) {
	attemptKey := attemptKeyPrefix + key
	count, err := l.rdb.Incr(ctx, attemptKey).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, attemptKey, loginWindow).Err(); err != nil {
			return 0, err
		}
	}
	if count >= int64(maxLoginAttempts) {
		if err := l.rdb.Set(ctx, lockKeyPrefix+key, "1", lockDuration).Err(); err != nil {
			return 0, err
		}
		return 0, nil
	}
	remaining := maxLoginAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, attemptKeyPrefix+key, lockKeyPrefix+key).Err()
}
