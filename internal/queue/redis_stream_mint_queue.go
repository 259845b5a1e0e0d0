package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tixgate/internal/model"
	"tixgate/pkg/logger"
)

const (
	StreamKey          = "mint:stream"
	ConsumerGroupName  = "mint-workers"
	ConsumerNamePrefix = "minter"
)

// RedisStreamMintQueueConfig tunes redelivery. Zero values fall back to
// defaults.
type RedisStreamMintQueueConfig struct {
	// ClaimMinIdleTime is how long a message may sit in the PEL before
	// XAUTOCLAIM hands it to another consumer.
	ClaimMinIdleTime time.Duration
	// MaxRetryCount marks a message as poison and discards it.
	MaxRetryCount int
	// ReadGroupBlockTime is the XReadGroup block interval.
	ReadGroupBlockTime time.Duration
}

func defaultRedisStreamConfig() RedisStreamMintQueueConfig {
	return RedisStreamMintQueueConfig{
		ClaimMinIdleTime:   5 * time.Second,
		MaxRetryCount:      5,
		ReadGroupBlockTime: 2 * time.Second,
	}
}

type RedisStreamMintQueue struct {
	client       *redis.Client
	streamKey    string
	groupName    string
	consumerName string
	cfg          RedisStreamMintQueueConfig
	// onDiscard is invoked when a poison message is dropped, so the caller
	// can mark the order's tickets as mint-failed.
	onDiscard func(job *model.MintJob)
}

// NewRedisStreamMintQueue builds the Redis Streams MintQueue. config may be
// nil for defaults; onDiscard may be nil.
func NewRedisStreamMintQueue(client *redis.Client, consumerID string, config *RedisStreamMintQueueConfig, onDiscard func(job *model.MintJob)) (*RedisStreamMintQueue, error) {
	if consumerID == "" {
		consumerID = uuid.New().String()
	}
	cfg := defaultRedisStreamConfig()
	if config != nil {
		if config.ClaimMinIdleTime > 0 {
			cfg.ClaimMinIdleTime = config.ClaimMinIdleTime
		}
		if config.MaxRetryCount > 0 {
			cfg.MaxRetryCount = config.MaxRetryCount
		}
		if config.ReadGroupBlockTime > 0 {
			cfg.ReadGroupBlockTime = config.ReadGroupBlockTime
		}
	}
	q := &RedisStreamMintQueue{
		client:       client,
		streamKey:    StreamKey,
		groupName:    ConsumerGroupName,
		consumerName: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:          cfg,
		onDiscard:    onDiscard,
	}
	if err := q.ensureConsumerGroup(context.Background()); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamMintQueue) ensureConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.streamKey, q.groupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (q *RedisStreamMintQueue) PublishMintJob(ctx context.Context, job *model.MintJob) error {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal mint job: %w", err)
	}
	_, err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamKey,
		ID:     "*",
		Values: map[string]interface{}{"job": string(jobJSON)},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (q *RedisStreamMintQueue) SubscribeMintJobs(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		go q.runAutoClaim(ctx, out)
		q.runReadLoop(ctx, out)
	}()
	return out, nil
}

func (q *RedisStreamMintQueue) runReadLoop(ctx context.Context, out chan<- Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			q.readAndDeliver(ctx, out)
		}
	}
}

// readAndDeliver reads only new messages (">"). Messages already claimed by
// this consumer sit in the PEL and come back through XAUTOCLAIM after the
// idle timeout, which is what turns a Nack into a delayed retry.
func (q *RedisStreamMintQueue) readAndDeliver(ctx context.Context, out chan<- Delivery) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.groupName,
		Consumer: q.consumerName,
		Streams:  []string{q.streamKey, ">"},
		Count:    10,
		Block:    q.cfg.ReadGroupBlockTime,
	}).Result()

	if err == redis.Nil {
		return
	}
	if err != nil {
		logger.WithComponent("mint_queue").Error("XReadGroup failed", zap.Error(err))
		time.Sleep(time.Second)
		return
	}

	for _, stream := range streams {
		if stream.Stream != q.streamKey {
			continue
		}
		for _, msg := range stream.Messages {
			d := q.newDelivery(ctx, msg)
			if d != nil {
				select {
				case out <- *d:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// shouldProcessMessage drops poison messages that already burned their
// retries, acking them so they leave the PEL for good.
func (q *RedisStreamMintQueue) shouldProcessMessage(ctx context.Context, msg redis.XMessage) bool {
	n, err := q.getMessageRetryCount(ctx, msg.ID)
	if err != nil {
		logger.WithComponent("mint_queue").Warn("getMessageRetryCount failed", zap.String("message_id", msg.ID), zap.Error(err))
		return true
	}
	if n >= q.cfg.MaxRetryCount {
		logger.WithComponent("mint_queue").Warn("discard poison mint job",
			zap.String("message_id", msg.ID), zap.Int("retries", n), zap.Int("max_retries", q.cfg.MaxRetryCount))
		_ = q.client.XAck(ctx, q.streamKey, q.groupName, msg.ID).Err()
		if q.onDiscard != nil {
			if job := decodeJob(msg); job != nil {
				q.onDiscard(job)
			}
		}
		return false
	}
	return true
}

func (q *RedisStreamMintQueue) getMessageRetryCount(ctx context.Context, messageID string) (int, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.streamKey,
		Group:  q.groupName,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return int(pending[0].RetryCount), nil
}

// runAutoClaim periodically reclaims messages whose consumer went silent.
func (q *RedisStreamMintQueue) runAutoClaim(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	startID := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			claimed, nextID, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   q.streamKey,
				Group:    q.groupName,
				Consumer: q.consumerName,
				MinIdle:  q.cfg.ClaimMinIdleTime,
				Count:    10,
				Start:    startID,
			}).Result()

			if err != nil && err != redis.Nil {
				logger.WithComponent("mint_queue").Error("XAutoClaim failed", zap.Error(err))
				continue
			}
			if nextID != "" && nextID != "0-0" {
				startID = nextID
			} else {
				startID = "0-0"
			}

			for _, msg := range claimed {
				if !q.shouldProcessMessage(ctx, msg) {
					continue
				}
				d := q.newDelivery(ctx, msg)
				if d != nil {
					select {
					case out <- *d:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}
}

func decodeJob(msg redis.XMessage) *model.MintJob {
	jobJSON, ok := msg.Values["job"].(string)
	if !ok {
		logger.WithComponent("mint_queue").Warn("invalid message: missing job field", zap.String("message_id", msg.ID))
		return nil
	}
	var job model.MintJob
	if err := json.Unmarshal([]byte(jobJSON), &job); err != nil {
		logger.WithComponent("mint_queue").Warn("unmarshal mint job failed", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}
	return &job
}

func (q *RedisStreamMintQueue) newDelivery(ctx context.Context, msg redis.XMessage) *Delivery {
	job := decodeJob(msg)
	if job == nil {
		return nil
	}
	msgID := msg.ID
	return &Delivery{
		Job: job,
		Ack: func() {
			if err := q.client.XAck(ctx, q.streamKey, q.groupName, msgID).Err(); err != nil {
				logger.WithComponent("mint_queue").Error("XAck failed", zap.String("message_id", msgID), zap.Error(err))
			}
		},
		Nack: func(requeue bool) {
			if requeue {
				// Leave the message in the PEL; XAUTOCLAIM picks it up
				// after ClaimMinIdleTime, which is the retry delay.
				logger.WithComponent("mint_queue").Info("mint job nack, will retry",
					zap.String("message_id", msgID), zap.Duration("claim_min_idle", q.cfg.ClaimMinIdleTime))
				return
			}
			if err := q.client.XAck(ctx, q.streamKey, q.groupName, msgID).Err(); err != nil {
				logger.WithComponent("mint_queue").Error("XAck discard failed", zap.String("message_id", msgID), zap.Error(err))
			}
		},
	}
}
