package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisAnalytics keeps per-node counters in a Redis hash per flow node.
type RedisAnalytics struct {
	client *redis.Client
	prefix string
}

// NewRedisAnalytics creates a Redis counter sink. Keys are "<prefix>:<flowId>:<nodeId>".
func NewRedisAnalytics(client *redis.Client, prefix string) *RedisAnalytics {
	if prefix == "" {
		prefix = "flow_analytics"
	}
	return &RedisAnalytics{client: client, prefix: prefix}
}

// Key returns the hash key holding the counters of a node.
func (a *RedisAnalytics) Key(flowID, nodeID string) string {
	return fmt.Sprintf("%s:%s:%s", a.prefix, flowID, nodeID)
}

func (a *RedisAnalytics) Record(ctx context.Context, flowID, nodeID string, metric Metric, elapsedSeconds *int) error {
	key := a.Key(flowID, nodeID)
	pipe := a.client.TxPipeline()
	pipe.HIncrBy(ctx, key, string(metric), 1)
	if elapsedSeconds != nil {
		pipe.HIncrBy(ctx, key, "elapsed_seconds", int64(*elapsedSeconds))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record analytics in redis: %w", err)
	}
	return nil
}

// Counters returns every counter recorded for a node.
func (a *RedisAnalytics) Counters(ctx context.Context, flowID, nodeID string) (map[string]string, error) {
	return a.client.HGetAll(ctx, a.Key(flowID, nodeID)).Result()
}

// FanoutAnalytics records to every sink and joins their errors.
type FanoutAnalytics []Analytics

func (f FanoutAnalytics) Record(ctx context.Context, flowID, nodeID string, metric Metric, elapsedSeconds *int) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Record(ctx, flowID, nodeID, metric, elapsedSeconds); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
