package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"kanban/domain"
)

// Publisher announces board changes to some outside listener.
type Publisher interface {
	Publish(ctx context.Context, ev domain.BoardEvent) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, domain.BoardEvent) error { return nil }

// RedisPublisher publishes events as JSON on a pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher for a redis pub/sub channel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev domain.BoardEvent) error {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// QueuePublisher enqueues events on an Azure storage queue. Queue messages
// are capped at 64 KiB, so the board snapshot is left out.
type QueuePublisher struct {
	queue *azqueue.QueueClient
}

// QueueClientOptions is the retry policy shared by queue clients.
func QueueClientOptions() *azqueue.ClientOptions {
	return &azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
}

// NewQueuePublisher connects to an Azure storage queue.
func NewQueuePublisher(connStr, queue string) (*QueuePublisher, error) {
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queue, QueueClientOptions())
	if err != nil {
		return nil, err
	}
	return &QueuePublisher{queue: q}, nil
}

func queueMessage(ev domain.BoardEvent) (string, error) {
	ev.Board = nil
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (p *QueuePublisher) Publish(ctx context.Context, ev domain.BoardEvent) error {
	msg, err := queueMessage(ev)
	if err != nil {
		return err
	}
	_, err = p.queue.EnqueueMessage(ctx, msg, nil)
	return err
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev domain.BoardEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
