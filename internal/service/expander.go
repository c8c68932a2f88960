package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lyycrypto/jebalrepository/internal/models"
)

const (
	maxIDClaimAttempts = 16
	idClaimTTL         = 24 * time.Hour
)

// ErrIDUnavailable indicates every candidate creation key was already claimed.
var ErrIDUnavailable = errors.New("no free creation key")

// IDClaimer reserves a creation key for processes sharing one store. It
// reports false when another process holds the key.
type IDClaimer func(ctx context.Context, key int64) (bool, error)

// NewRedisIDClaimer claims keys with SET NX under "{namespace}:ids:{key}".
func NewRedisIDClaimer(client *redis.Client, namespace string) IDClaimer {
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = "homework"
	}

	return func(ctx context.Context, key int64) (bool, error) {
		ok, err := client.SetNX(ctx, namespace+":ids:"+strconv.FormatInt(key, 10), 1, idClaimTTL).Result()
		if err != nil {
			return false, fmt.Errorf("failed to claim creation key %d: %w", key, err)
		}
		return ok, nil
	}
}

// IDGenerator hands out millisecond creation keys. Keys never repeat within a
// process: a second call inside the same millisecond gets the next value.
type IDGenerator struct {
	mu    sync.Mutex
	last  int64
	now   func() time.Time
	claim IDClaimer
}

// NewIDGenerator uses time.Now when now is nil.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns a creation key strictly greater than any previous one.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.now().UnixMilli()
	if current <= g.last {
		current = g.last + 1
	}
	g.last = current
	return current
}

// WithClaimer makes Reserve check every key against claim.
func (g *IDGenerator) WithClaimer(claim IDClaimer) *IDGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.claim = claim
	return g
}

// Reserve returns the next key no other process has claimed. Without a
// claimer it is Next.
func (g *IDGenerator) Reserve(ctx context.Context) (int64, error) {
	g.mu.Lock()
	claim := g.claim
	g.mu.Unlock()

	if claim == nil {
		return g.Next(), nil
	}

	for attempt := 0; attempt < maxIDClaimAttempts; attempt++ {
		key := g.Next()
		ok, err := claim(ctx, key)
		if err != nil {
			return 0, err
		}
		if ok {
			return key, nil
		}
	}
	return 0, ErrIDUnavailable
}

// Expand turns a draft into the records to write. A draft without a name or a
// due date yields nothing. A repeating draft yields one record per week, each
// named "{name}({n})" and keyed "{base}_{i}"; a repeat count below one counts
// as one.
func Expand(draft models.Draft, base int64) []models.Assignment {
	if !draft.Complete() {
		return nil
	}

	subject := draft.Subject
	if subject == "" {
		subject = models.DefaultSubject()
	}

	if !draft.IsRepeating {
		return []models.Assignment{{
			ID: strconv.FormatInt(base, 10),
			AssignmentRecord: models.AssignmentRecord{
				Subject:     subject,
				DueDate:     draft.DueDate,
				Name:        draft.Name,
				Description: draft.Description,
			},
		}}
	}

	start, ok := models.ParseDate(draft.DueDate)
	if !ok {
		return nil
	}

	count := draft.RepeatCount
	if count < 1 {
		count = 1
	}

	records := make([]models.Assignment, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, models.Assignment{
			ID: fmt.Sprintf("%d_%d", base, i),
			AssignmentRecord: models.AssignmentRecord{
				Subject:     subject,
				DueDate:     models.FormatDate(start.AddDate(0, 0, 7*i)),
				Name:        fmt.Sprintf("%s(%d)", draft.Name, i+1),
				Description: draft.Description,
			},
		})
	}
	return records
}
