package caching

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"licensetracker/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	runLockKey    = "license-notifier:run-lock"
	lastRunKey    = "license-notifier:last-run"
	lastRunTTL    = 30 * 24 * time.Hour
	releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
)

// ErrNoLastRun is returned when no run summary has been stored yet
var ErrNoLastRun = errors.New("no notification run recorded")

// RunStore coordinates notification runs across invocations
type RunStore interface {
	// AcquireRunLock takes the run lock for ttl. ok is false when another
	// run holds it. release is safe to call more than once.
	AcquireRunLock(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
	SaveLastRun(ctx context.Context, summary *models.RunSummary) error
	GetLastRun(ctx context.Context) (*models.RunSummary, error)
	Ping(ctx context.Context) error
}

type redisRunStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClient builds a client from an address that may carry a redis:// scheme
func NewRedisClient(addr, password string, db int) *redis.Client {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	return redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})
}

func NewRedisRunStore(client *redis.Client, logger *zap.Logger) RunStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisRunStore{client: client, logger: logger}
}

func (s *redisRunStore) AcquireRunLock(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, runLockKey, token, ttl).Result()
	if err != nil {
		return func() {}, false, errors.Wrap(err, "acquire run lock")
	}
	if !ok {
		return func() {}, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// background context so a cancelled request still frees the lock
			if err := s.client.Eval(context.Background(), releaseScript, []string{runLockKey}, token).Err(); err != nil {
				s.logger.Warn("failed to release run lock", zap.Error(err))
			}
		})
	}
	return release, true, nil
}

func (s *redisRunStore) SaveLastRun(ctx context.Context, summary *models.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "marshal run summary")
	}
	if err := s.client.Set(ctx, lastRunKey, data, lastRunTTL).Err(); err != nil {
		return errors.Wrap(err, "store run summary")
	}
	return nil
}

func (s *redisRunStore) GetLastRun(ctx context.Context) (*models.RunSummary, error) {
	data, err := s.client.Get(ctx, lastRunKey).Bytes()
	if err == redis.Nil {
		return nil, ErrNoLastRun
	}
	if err != nil {
		return nil, errors.Wrap(err, "load run summary")
	}

	var summary models.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, errors.Wrap(err, "decode run summary")
	}
	return &summary, nil
}

func (s *redisRunStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
