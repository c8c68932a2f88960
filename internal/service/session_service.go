package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/board"
	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/models"
)

const (
	defaultSessionTTL = 24 * time.Hour
	sessionLockTTL    = 10 * time.Second
	sessionLockRetry  = 10 * time.Millisecond
)

var releaseSessionLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrSessionNotFound indicates an unknown or expired board session.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists board sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*board.Session, error)
	Save(ctx context.Context, session *board.Session) error
	Delete(ctx context.Context, id string) error
	// Lock serialises mutations of one session; call the returned func to release it.
	Lock(ctx context.Context, id string) (func(), error)
}

type redisSessionStore struct {
	client     *redis.Client
	prefix     string
	lockPrefix string
	ttl        time.Duration
}

// NewRedisSessionStore keeps each session as JSON under "{namespace}:sessions:{id}".
func NewRedisSessionStore(client *redis.Client, namespace string, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = "homework"
	}

	return &redisSessionStore{
		client:     client,
		prefix:     namespace + ":sessions:",
		lockPrefix: namespace + ":session-locks:",
		ttl:        ttl,
	}
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*board.Session, error) {
	payload, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session board.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, nil
}

func (s *redisSessionStore) Save(ctx context.Context, session *board.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+session.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}

// Lock holds "{namespace}:session-locks:{id}" with a random token, so replicas
// sharing Redis take turns. The key expires if the holder dies.
func (s *redisSessionStore) Lock(ctx context.Context, id string) (func(), error) {
	key := s.lockPrefix + id
	token := uuid.NewString()

	ticker := time.NewTicker(sessionLockRetry)
	defer ticker.Stop()

	for {
		ok, err := s.client.SetNX(ctx, key, token, sessionLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to lock session %s: %w", id, err)
		}
		if ok {
			return func() {
				_ = releaseSessionLock.Run(context.Background(), s.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type memorySessionEntry struct {
	session   board.Session
	expiresAt time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memorySessionEntry
	locks   map[string]*sync.Mutex
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySessionStore keeps sessions in process, for drivers without Redis.
func NewMemorySessionStore(ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &memorySessionStore{
		entries: make(map[string]memorySessionEntry),
		locks:   make(map[string]*sync.Mutex),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *memorySessionStore) Get(_ context.Context, id string) (*board.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, ErrSessionNotFound
	}

	session := entry.session
	return &session, nil
}

func (s *memorySessionStore) Save(_ context.Context, session *board.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[session.ID] = memorySessionEntry{session: *session, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *memorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	delete(s.locks, id)
	return nil
}

func (s *memorySessionStore) Lock(_ context.Context, id string) (func(), error) {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}

// SessionService drives board sessions: tab, modal, draft and calendar month.
type SessionService interface {
	Create(ctx context.Context) (dto.SessionResponse, error)
	Get(ctx context.Context, id string) (dto.SessionResponse, error)
	Delete(ctx context.Context, id string) error
	Open(ctx context.Context, id string) (dto.SessionResponse, error)
	Close(ctx context.Context, id string) (dto.SessionResponse, error)
	UpdateDraft(ctx context.Context, id string, patch board.DraftPatch) (dto.SessionResponse, error)
	Submit(ctx context.Context, id string) (dto.SessionSubmitResponse, error)
	SelectTab(ctx context.Context, id string, tab int) (dto.SessionResponse, error)
	SelectDate(ctx context.Context, id string, date string) (dto.SessionResponse, error)
	ShiftMonth(ctx context.Context, id string, delta int) (dto.SessionResponse, error)
}

type sessionService struct {
	store       SessionStore
	assignments AssignmentService
	board       BoardService
	logger      zerolog.Logger
}

// NewSessionService builds the session service. Submissions go through assignments.
func NewSessionService(store SessionStore, assignments AssignmentService, boardService BoardService, logger zerolog.Logger) SessionService {
	return &sessionService{
		store:       store,
		assignments: assignments,
		board:       boardService,
		logger:      logger.With().Str("component", "session_service").Logger(),
	}
}

func (s *sessionService) Create(ctx context.Context) (dto.SessionResponse, error) {
	session := board.NewSession(uuid.NewString(), s.board.Today())
	if err := s.store.Save(ctx, session); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Debug().Str("session_id", session.ID).Msg("board session created")
	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Get(ctx context.Context, id string) (dto.SessionResponse, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *sessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *sessionService) Open(ctx context.Context, id string) (dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(session *board.Session) error {
		session.Open()
		return nil
	})
}

func (s *sessionService) Close(ctx context.Context, id string) (dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(session *board.Session) error {
		session.Close()
		return nil
	})
}

func (s *sessionService) UpdateDraft(ctx context.Context, id string, patch board.DraftPatch) (dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(session *board.Session) error {
		session.UpdateDraft(patch)
		return nil
	})
}

func (s *sessionService) Submit(ctx context.Context, id string) (dto.SessionSubmitResponse, error) {
	var created []dto.AssignmentResponse
	var submitted bool

	response, err := s.mutate(ctx, id, func(session *board.Session) error {
		ok, err := session.Submit(func(draft models.Draft) error {
			records, err := s.assignments.Create(ctx, dto.NewAssignmentCreateRequest(draft))
			if err != nil {
				return err
			}
			created = records
			return nil
		})
		submitted = ok
		return err
	})
	if err != nil {
		return dto.SessionSubmitResponse{}, err
	}

	if created == nil {
		created = []dto.AssignmentResponse{}
	}
	return dto.SessionSubmitResponse{Session: response, Submitted: submitted, Created: created}, nil
}

func (s *sessionService) SelectTab(ctx context.Context, id string, tab int) (dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(session *board.Session) error {
		return session.SelectTab(board.Tab(tab))
	})
}

func (s *sessionService) SelectDate(ctx context.Context, id string, date string) (dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(session *board.Session) error {
		return session.SelectDate(date)
	})
}

func (s *sessionService) ShiftMonth(ctx context.Context, id string, delta int) (dto.SessionResponse, error) {
	return s.mutate(ctx, id, func(session *board.Session) error {
		session.ShiftMonth(delta)
		return nil
	})
}

func (s *sessionService) mutate(ctx context.Context, id string, apply func(*board.Session) error) (dto.SessionResponse, error) {
	unlock, err := s.store.Lock(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	defer unlock()

	session, err := s.store.Get(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	if err := apply(session); err != nil {
		return dto.SessionResponse{}, err
	}

	session.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, session); err != nil {
		return dto.SessionResponse{}, err
	}

	return dto.NewSessionResponse(session), nil
}
