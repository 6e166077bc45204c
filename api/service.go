package api

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"kanban/domain"
	"kanban/notify"
)

// BoardService owns the current board. Handlers run concurrently, so every
// read and transition goes through mu.
type BoardService struct {
	mu      sync.Mutex
	board   domain.Board
	manager *domain.Manager
	store   Persister
	pub     notify.Publisher
	broker  *updateBroker
	logger  *log.Logger
}

// NewBoardService creates a service starting from initial. store may be nil.
func NewBoardService(initial domain.Board, manager *domain.Manager, store Persister, pub notify.Publisher, logger *log.Logger) *BoardService {
	if manager == nil {
		manager = domain.NewManager(nil)
	}
	if pub == nil {
		pub = notify.Noop{}
	}
	if logger == nil {
		panic("Logger is not initialized")
	}
	return &BoardService{
		board:   initial,
		manager: manager,
		store:   store,
		pub:     pub,
		broker:  newUpdateBroker(),
		logger:  logger,
	}
}

// Board returns the current board. Callers must treat it as read-only.
func (s *BoardService) Board() domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// Execute validates every command and then applies them in order. It
// returns the resulting board and how many commands changed it.
func (s *BoardService) Execute(ctx context.Context, cmds []domain.Command) (domain.Board, int, error) {
	for i, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return s.Board(), 0, fmt.Errorf("command %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	applied := 0
	for _, cmd := range cmds {
		next, changed, err := s.manager.Apply(s.board, cmd)
		if err != nil {
			return s.board, applied, err
		}
		if !changed {
			continue
		}
		applied++
		evType, _ := domain.EventForCommand(cmd.Type)
		s.commit(ctx, next, evType, cmd.IdempotencyKey)
	}
	return s.board, applied, nil
}

// Drag applies a drag gesture. Stale gestures are ignored.
func (s *BoardService) Drag(ctx context.Context, d domain.Drag) (domain.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.manager.ApplyDrag(s.board, d)
	if changed {
		s.commit(ctx, next, domain.EventForDrag(d), "")
	}
	return s.board, changed
}

// commit must be called with mu held.
func (s *BoardService) commit(ctx context.Context, next domain.Board, evType, cause string) {
	s.board = next
	ctx = context.WithoutCancel(ctx)
	if s.store != nil {
		s.store.Save(ctx, next)
	}
	if err := s.pub.Publish(ctx, domain.NewEvent(evType, cause, next)); err != nil {
		s.logger.WithError(err).WithField("event", evType).Warn("event publish failed")
	}
	s.broker.notify()
}

// Updates returns a channel signalled after every change, and a function to
// stop receiving.
func (s *BoardService) Updates() (<-chan struct{}, func()) {
	ch := s.broker.subscribe()
	return ch, func() { s.broker.unsubscribe(ch) }
}

// Ping checks the backing store.
func (s *BoardService) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}
