package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/brightclass/brightclass-lms/internal/logger"
)

type redisNotifier struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedis connects to redis and returns a Notifier publishing to channel.
func NewRedis(addr, channel string, log *logger.Logger) (Notifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr required")
	}
	if channel == "" {
		channel = "submissions"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisNotifier{
		log:     log.With("notifier", "redis", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (n *redisNotifier) SubmissionCompleted(ctx context.Context, sub Submission) error {
	buf, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, buf).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	n.log.Debug("submission notification published", "result_id", sub.ResultID)
	return nil
}
