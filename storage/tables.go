package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

const (
	boardPartition = "board"
	// Table Storage caps a single string property at 64 KiB.
	maxEntityValue = 64 * 1024
)

var ErrValueTooLarge = errors.New("storage: value exceeds table property limit")

// TableKV keeps each key as one Azure Table entity in the "board" partition.
type TableKV struct {
	table *aztables.Client
}

// TablesClientOptions is the retry policy shared by table clients.
func TablesClientOptions() *aztables.ClientOptions {
	return &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
}

// NewTableKV connects to table using an Azure storage connection string.
func NewTableKV(connStr, table string) (*TableKV, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, TablesClientOptions())
	if err != nil {
		return nil, err
	}
	return &TableKV{table: svc.NewClient(table)}, nil
}

type boardEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Data         string `json:"Data"`
}

func encodeEntity(key string, value []byte) ([]byte, error) {
	if len(value) > maxEntityValue {
		return nil, fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(value))
	}
	return sonic.ConfigStd.Marshal(boardEntity{PartitionKey: boardPartition, RowKey: key, Data: string(value)})
}

func decodeEntity(data []byte) ([]byte, error) {
	var ent boardEntity
	if err := sonic.ConfigStd.Unmarshal(data, &ent); err != nil {
		return nil, err
	}
	return []byte(ent.Data), nil
}

func (t *TableKV) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := t.table.GetEntity(ctx, boardPartition, key, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeEntity(resp.Value)
}

func (t *TableKV) Set(ctx context.Context, key string, value []byte) error {
	ent, err := encodeEntity(key, value)
	if err != nil {
		return err
	}
	_, err = t.table.UpsertEntity(ctx, ent, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

func (t *TableKV) Delete(ctx context.Context, key string) error {
	_, err := t.table.DeleteEntity(ctx, boardPartition, key, nil)
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return err
	}
	return nil
}

// EnsureTable creates the table if it does not exist yet.
func (t *TableKV) EnsureTable(ctx context.Context) error {
	_, err := t.table.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return err
		}
	}
	return nil
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
