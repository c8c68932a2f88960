package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/models"
)

var setCompletedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'completed', ARGV[1])
return 1
`)

type changeEvent struct {
	Path   string    `json:"path"`
	Source string    `json:"source"`
	SentAt time.Time `json:"sent_at"`
}

// RedisStore keeps every record in its own hash so the completed field can be
// written on its own. Change notifications travel over pub/sub, which keeps
// several service replicas pointed at one Redis in sync.
type RedisStore struct {
	client    *redis.Client
	namespace string
	channel   string
	nodeID    string
	feed      *feed
	pubsub    *redis.PubSub
	cancel    context.CancelFunc
	logger    zerolog.Logger
}

// NewRedisStore subscribes to the namespace change channel before returning.
func NewRedisStore(ctx context.Context, client *redis.Client, namespace string, logger zerolog.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client must not be nil")
	}

	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = "homework"
	}

	storeLogger := logger.With().Str("component", "redis_store").Logger()
	s := &RedisStore{
		client:    client,
		namespace: namespace,
		channel:   namespace + ":changes",
		nodeID:    uuid.NewString(),
		feed:      newFeed(storeLogger),
		logger:    storeLogger,
	}

	consumeCtx, cancel := context.WithCancel(context.Background())
	pubsub := client.Subscribe(consumeCtx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	s.pubsub = pubsub
	s.cancel = cancel
	go s.consume(consumeCtx)

	return s, nil
}

func (s *RedisStore) idsKey() string {
	return s.namespace + ":" + PathAssignments
}

func (s *RedisStore) recordKey(id string) string {
	return s.namespace + ":" + PathAssignments + ":" + id
}

func (s *RedisStore) imageKey() string {
	return s.namespace + ":" + PathScheduleImage
}

func (s *RedisStore) SubscribeAssignments(ctx context.Context, fn AssignmentsListener) (func(), error) {
	if fn == nil {
		return nil, errors.New("listener must not be nil")
	}

	return s.feed.watch(ctx, PathAssignments, func(ctx context.Context) error {
		records, err := s.loadAssignments(ctx)
		if err != nil {
			return err
		}
		fn(records)
		return nil
	}), nil
}

func (s *RedisStore) SubscribeScheduleImage(ctx context.Context, fn ImageListener) (func(), error) {
	if fn == nil {
		return nil, errors.New("listener must not be nil")
	}

	return s.feed.watch(ctx, PathScheduleImage, func(ctx context.Context) error {
		value, err := s.client.Get(ctx, s.imageKey()).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		fn(value)
		return nil
	}), nil
}

func (s *RedisStore) PutAssignment(ctx context.Context, id string, record models.AssignmentRecord) error {
	key := s.recordKey(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"subject", record.Subject,
			"dueDate", record.DueDate,
			"name", record.Name,
			"description", record.Description,
			"completed", strconv.FormatBool(record.Completed),
		)
		pipe.SAdd(ctx, s.idsKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", AssignmentPath(id), err)
	}

	return s.publish(ctx, PathAssignments)
}

func (s *RedisStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	updated, err := setCompletedScript.Run(ctx, s.client, []string{s.recordKey(id)}, strconv.FormatBool(completed)).Int()
	if err != nil {
		return fmt.Errorf("failed to write %s/completed: %w", AssignmentPath(id), err)
	}
	if updated == 0 {
		return ErrNotFound
	}

	return s.publish(ctx, PathAssignments)
}

func (s *RedisStore) DeleteAssignment(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(id))
		pipe.SRem(ctx, s.idsKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", AssignmentPath(id), err)
	}

	return s.publish(ctx, PathAssignments)
}

func (s *RedisStore) SetScheduleImage(ctx context.Context, dataURI string) error {
	if err := s.client.Set(ctx, s.imageKey(), dataURI, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", PathScheduleImage, err)
	}

	return s.publish(ctx, PathScheduleImage)
}

func (s *RedisStore) RemoveScheduleImage(ctx context.Context) error {
	if err := s.client.Del(ctx, s.imageKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", PathScheduleImage, err)
	}

	return s.publish(ctx, PathScheduleImage)
}

// Close stops the change consumer. The Redis client stays open for its owner.
func (s *RedisStore) Close() error {
	s.cancel()
	s.feed.closeAll()
	return s.pubsub.Close()
}

func (s *RedisStore) loadAssignments(ctx context.Context) (map[string]models.AssignmentRecord, error) {
	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list assignment ids: %w", err)
	}
	sort.Strings(ids)

	records := make(map[string]models.AssignmentRecord, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	for i, id := range ids {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			continue
		}
		completed, _ := strconv.ParseBool(fields["completed"])
		records[id] = models.AssignmentRecord{
			Subject:     fields["subject"],
			DueDate:     fields["dueDate"],
			Name:        fields["name"],
			Description: fields["description"],
			Completed:   completed,
		}
	}

	return records, nil
}

func (s *RedisStore) publish(ctx context.Context, path string) error {
	payload, err := json.Marshal(changeEvent{
		Path:   path,
		Source: s.nodeID,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change for %s: %w", path, err)
	}

	return nil
}

func (s *RedisStore) consume(ctx context.Context) {
	for {
		msg, err := s.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			s.logger.Error().Err(err).Msg("store change subscription closed")
			return
		}

		var event changeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.logger.Warn().Err(err).Msg("invalid store change event")
			continue
		}

		s.feed.notify(event.Path)
	}
}
