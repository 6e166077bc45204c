package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"kanban/domain"
)

// Adapter loads and saves the board snapshot under one key.
type Adapter struct {
	kv     KV
	key    string
	logger *log.Logger
}

// NewAdapter creates an adapter storing the board under key in kv.
func NewAdapter(kv KV, key string, logger *log.Logger) *Adapter {
	if kv == nil {
		panic("storage.NewAdapter: kv is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Adapter{kv: kv, key: key, logger: logger}
}

// Key is the store key holding the board.
func (a *Adapter) Key() string { return a.key }

// Load returns the stored board, or the seed board when nothing usable is
// stored. It never fails.
func (a *Adapter) Load(ctx context.Context) domain.Board {
	b, err := a.LoadErr(ctx)
	if err != nil {
		a.logger.WithField("key", a.key).WithError(err).Warn("board load failed, using seed")
		return domain.Seed()
	}
	return b
}

// LoadErr is Load for callers that write back what they read. A missing or
// unreadable value still yields the seed board, but a store error is
// returned so the caller does not overwrite a board it could not read.
func (a *Adapter) LoadErr(ctx context.Context) (domain.Board, error) {
	entry := a.logger.WithField("key", a.key)
	data, err := a.kv.Get(ctx, a.key)
	if errors.Is(err, ErrNotFound) {
		entry.Debug("no stored board, using seed")
		return domain.Seed(), nil
	}
	if err != nil {
		return domain.Board{}, fmt.Errorf("get %s: %w", a.key, err)
	}
	b, err := Decode(data)
	if err != nil {
		entry.WithError(err).Warn("stored board unreadable, using seed")
		return domain.Seed(), nil
	}
	fixed, fixes := domain.Repair(b)
	if len(fixes) > 0 {
		entry.WithField("fixes", fixes).Warn("stored board repaired")
	}
	return fixed, nil
}

// Save writes b and logs failures. The in-memory board stays authoritative
// either way.
func (a *Adapter) Save(ctx context.Context, b domain.Board) {
	if err := a.SaveErr(ctx, b); err != nil {
		a.logger.WithError(err).WithField("key", a.key).Warn("board save failed")
	}
}

// SaveErr is Save without swallowing the error.
func (a *Adapter) SaveErr(ctx context.Context, b domain.Board) error {
	data, err := Encode(b)
	if err != nil {
		return err
	}
	if err := a.kv.Set(ctx, a.key, data); err != nil {
		return fmt.Errorf("set %s: %w", a.key, err)
	}
	return nil
}

// Ping reports whether the store answers reads. A missing key is healthy.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.kv.Get(ctx, a.key)
	if err == nil || errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Encode serializes a board. Map keys are sorted so equal boards encode to
// equal bytes.
func Encode(b domain.Board) ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(normalize(b))
	if err != nil {
		return nil, fmt.Errorf("encode board: %w", err)
	}
	return data, nil
}

// Decode parses a stored board. It does not check board invariants, but a
// value without a columns field is rejected: nothing could be kept from it.
func Decode(data []byte) (domain.Board, error) {
	var b domain.Board
	if err := sonic.ConfigStd.Unmarshal(data, &b); err != nil {
		return domain.Board{}, fmt.Errorf("decode board: %w", err)
	}
	if b.Columns == nil {
		return domain.Board{}, errors.New("decode board: no columns")
	}
	return b, nil
}

// normalize replaces nil collections so they encode as {} and [].
func normalize(b domain.Board) domain.Board {
	if b.Tasks == nil {
		b.Tasks = map[string]domain.Task{}
	}
	if b.ColumnOrder == nil {
		b.ColumnOrder = []string{}
	}
	columns := make(map[string]domain.Column, len(b.Columns))
	for id, col := range b.Columns {
		if col.TaskIDs == nil {
			col.TaskIDs = []string{}
		}
		columns[id] = col
	}
	b.Columns = columns
	return b
}
