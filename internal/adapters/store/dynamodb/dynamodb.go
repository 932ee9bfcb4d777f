// Package dynamodb implements the queue store on an Amazon DynamoDB
// table. This is the production backend: conditional writes give the
// uniqueness guarantee, consistent scans give a coherent queue view, and
// the table's TTL setting reaps records of crashed entrants.
//
// Expected table shape: partition key `entrant_id` (string), attributes
// `enqueued_at` (string) and `expires_at` (number, configured as the TTL
// attribute).
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
)

const (
	attrEntrantID  = "entrant_id"
	attrEnqueuedAt = "enqueued_at"
	attrExpiresAt  = "expires_at"
)

// API is the subset of the DynamoDB client the store uses. Tests
// substitute a fake implementation.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store implements core.Store on a DynamoDB table.
type Store struct {
	client API
	table  string
}

var _ core.Store = (*Store)(nil)

// New creates a store using the default AWS credential chain.
func New(ctx context.Context, table, region string) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewWithClient(dynamodb.NewFromConfig(cfg), table), nil
}

// NewWithClient creates a store over an existing client.
func NewWithClient(client API, table string) *Store {
	return &Store{client: client, table: table}
}

// InsertIfAbsent implements core.Store via a conditional PutItem.
func (s *Store) InsertIfAbsent(ctx context.Context, record core.QueueRecord) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			attrEntrantID:  &types.AttributeValueMemberS{Value: record.EntrantID},
			attrEnqueuedAt: &types.AttributeValueMemberS{Value: record.EnqueuedAt},
			attrExpiresAt:  &types.AttributeValueMemberN{Value: strconv.FormatInt(record.ExpiresAt, 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(" + attrEntrantID + ")"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return core.ErrAlreadyQueued(record.EntrantID)
		}
		return core.ErrStore("inserting queue record").WithCause(err)
	}
	return nil
}

// UpdateExpiry implements core.Store via an unconditional UpdateItem.
func (s *Store) UpdateExpiry(ctx context.Context, entrantID string, expiresAt int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			attrEntrantID: &types.AttributeValueMemberS{Value: entrantID},
		},
		UpdateExpression: aws.String("SET #exp = :new_expiry"),
		ExpressionAttributeNames: map[string]string{
			"#exp": attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new_expiry": &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)},
		},
	})
	if err != nil {
		return core.ErrStore("updating lease expiry").WithCause(err)
	}
	return nil
}

// ScanLive implements core.Store via a consistent, filtered Scan. DynamoDB
// TTL deletion lags the expiry timestamp by design, so the filter excludes
// expired-but-unreaped records server-side; callers still re-filter.
func (s *Store) ScanLive(ctx context.Context, now time.Time) ([]core.QueueRecord, error) {
	var (
		records  []core.QueueRecord
		startKey map[string]types.AttributeValue
	)

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.table),
			ConsistentRead:   aws.Bool(true),
			FilterExpression: aws.String("#exp > :now"),
			ExpressionAttributeNames: map[string]string{
				"#exp": attrExpiresAt,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, core.ErrStore("scanning queue table").WithCause(err)
		}

		for _, item := range out.Items {
			record, err := recordFromItem(item)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}

		if out.LastEvaluatedKey == nil {
			return records, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// Delete implements core.Store. DeleteItem on a missing key succeeds.
func (s *Store) Delete(ctx context.Context, entrantID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			attrEntrantID: &types.AttributeValueMemberS{Value: entrantID},
		},
	})
	if err != nil {
		return core.ErrStore("deleting queue record").WithCause(err)
	}
	return nil
}

func recordFromItem(item map[string]types.AttributeValue) (core.QueueRecord, error) {
	var record core.QueueRecord

	id, ok := item[attrEntrantID].(*types.AttributeValueMemberS)
	if !ok {
		return record, core.ErrStore("queue record has no string " + attrEntrantID)
	}
	enqueued, ok := item[attrEnqueuedAt].(*types.AttributeValueMemberS)
	if !ok {
		return record, core.ErrStore("queue record has no string " + attrEnqueuedAt)
	}
	expiry, ok := item[attrExpiresAt].(*types.AttributeValueMemberN)
	if !ok {
		return record, core.ErrStore("queue record has no numeric " + attrExpiresAt)
	}
	expiresAt, err := strconv.ParseInt(expiry.Value, 10, 64)
	if err != nil {
		return record, core.ErrStore("parsing " + attrExpiresAt).WithCause(err)
	}

	record.EntrantID = id.Value
	record.EnqueuedAt = enqueued.Value
	record.ExpiresAt = expiresAt
	return record, nil
}
