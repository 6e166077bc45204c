package api

import (
	"context"

	"kanban/domain"
)

const postBodyMaxSize = 64 * 1024 // 64 KiB

// Persister saves board snapshots. Save must not fail the caller.
type Persister interface {
	Save(ctx context.Context, b domain.Board)
	Ping(ctx context.Context) error
}

// Deduper prevents processing of duplicate commands.
type Deduper interface {
	// AddMany records keys and reports, per key, whether it was new.
	AddMany(ctx context.Context, keys []string) ([]bool, error)
}

// POST /api/commands response body
type commandsResponse struct {
	IdempotencyKeys []string      `json:"idempotencyKeys,omitempty"`
	Applied         int           `json:"applied"`
	Duplicates      int           `json:"duplicates,omitempty"`
	Board           *domain.Board `json:"board,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// POST /api/drag response body
type dragResponse struct {
	Applied bool          `json:"applied"`
	Board   *domain.Board `json:"board,omitempty"`
	Error   string        `json:"error,omitempty"`
}
