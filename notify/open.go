package notify

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban/config"
)

// Open builds the publisher chain for cfg: a redis channel and/or a storage
// queue, fanned out with Multi behind a Dispatcher. The returned func
// drains the dispatcher. With no target configured it returns Noop.
func Open(cfg config.Config, rc *redis.Client, logger *log.Logger) (Publisher, func(), error) {
	var targets Multi
	if cfg.Events.Channel != "" {
		if rc == nil {
			return nil, nil, errors.New("events channel requires a redis client")
		}
		targets = append(targets, NewRedisPublisher(rc, cfg.Events.Channel))
	}
	if cfg.Events.Queue != "" {
		q, err := NewQueuePublisher(cfg.Storage.Tables, cfg.Events.Queue)
		if err != nil {
			return nil, nil, fmt.Errorf("queue publisher: %w", err)
		}
		targets = append(targets, q)
	}
	if len(targets) == 0 {
		return Noop{}, func() {}, nil
	}

	var next Publisher = targets
	if len(targets) == 1 {
		next = targets[0]
	}
	d := NewDispatcher(next, cfg.Events.Workers, cfg.Events.Buffer, 0, logger)
	return d, d.Close, nil
}
