package ddb

import (
	"authbot/internal/types"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	DefaultOpTimeout = 3 * time.Second
	tableWaitTimeout = 30 * time.Second
)

// ddbAPI is the part of *dynamodb.Client the store uses after bootstrap.
type ddbAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store implements ports.KVStore on a single DynamoDB table. Expiry uses the
// native TTL attribute; because DynamoDB evicts lazily, reads also drop items
// whose ttl has passed.
type Store struct {
	table     string
	cli       ddbAPI
	opTimeout time.Duration
	now       func() time.Time
}

type entryItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Value     []byte `dynamodbav:"val"`
	ExpiresAt int64  `dynamodbav:"ttl,omitempty"`
}

// NewStore creates the table if needed. A failure to create it is returned so
// the caller can fall back to a degraded store.
func NewStore(ctx context.Context, table string, cli *dynamodb.Client, opTimeout time.Duration) (*Store, error) {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	if err := createTableIfNotExists(ctx, cli, table); err != nil {
		return nil, types.Err(types.ErrCacheUnavailable, err, "")
	}
	return newStore(table, cli, opTimeout, time.Now), nil
}

func newStore(table string, cli ddbAPI, opTimeout time.Duration, now func() time.Time) *Store {
	return &Store{table: table, cli: cli, opTimeout: opTimeout, now: now}
}

func (s *Store) Set(ctx context.Context, ns types.Namespace, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	item := entryItem{
		PK:    pkEntry(ns, key),
		SK:    skValue(),
		Value: value,
	}
	if ttl > 0 {
		item.ExpiresAt = s.now().Add(ttl).Unix()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.Err(types.ErrCacheUnavailable, err, "marshal %s", item.PK)
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	})
	if err != nil {
		return types.Err(types.ErrCacheUnavailable, err, "ddb put %s", item.PK)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, ns types.Namespace, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	pk := pkEntry(ns, key)
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.table,
		ConsistentRead: awsBool(true),
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pk},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skValue()},
		},
	})
	if err != nil {
		return nil, false, types.Err(types.ErrCacheUnavailable, err, "ddb get %s", pk)
	}
	if out.Item == nil {
		return nil, false, nil
	}
	var item entryItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, types.Err(types.ErrCacheUnavailable, err, "unmarshal %s", pk)
	}
	if item.ExpiresAt > 0 && item.ExpiresAt <= s.now().Unix() {
		return nil, false, nil
	}
	return item.Value, true, nil
}

func (s *Store) Delete(ctx context.Context, ns types.Namespace, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	pk := pkEntry(ns, key)
	_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pk},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skValue()},
		},
	})
	if err != nil {
		return types.Err(types.ErrCacheUnavailable, err, "ddb delete %s", pk)
	}
	return nil
}

// Close is a no-op; the SDK client holds no long-lived connections of its own.
func (s *Store) Close() error { return nil }
