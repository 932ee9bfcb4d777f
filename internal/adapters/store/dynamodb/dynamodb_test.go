package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/ci-queue/internal/core"
)

// fakeAPI is a scripted DynamoDB API for exercising the store's request
// shapes and error mapping.
type fakeAPI struct {
	putInput    *sdk.PutItemInput
	putErr      error
	updateInput *sdk.UpdateItemInput
	updateErr   error
	scanInputs  []*sdk.ScanInput
	scanOutputs []*sdk.ScanOutput
	scanErr     error
	deleteInput *sdk.DeleteItemInput
	deleteErr   error
}

func (f *fakeAPI) PutItem(_ context.Context, params *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.putInput = params
	return &sdk.PutItemOutput{}, f.putErr
}

func (f *fakeAPI) UpdateItem(_ context.Context, params *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.updateInput = params
	return &sdk.UpdateItemOutput{}, f.updateErr
}

func (f *fakeAPI) Scan(_ context.Context, params *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.scanInputs = append(f.scanInputs, params)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	out := f.scanOutputs[len(f.scanInputs)-1]
	return out, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, params *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.deleteInput = params
	return &sdk.DeleteItemOutput{}, f.deleteErr
}

func item(id, enqueuedAt, expiresAt string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"entrant_id":  &types.AttributeValueMemberS{Value: id},
		"enqueued_at": &types.AttributeValueMemberS{Value: enqueuedAt},
		"expires_at":  &types.AttributeValueMemberN{Value: expiresAt},
	}
}

func TestInsertIfAbsent_RequestShape(t *testing.T) {
	api := &fakeAPI{}
	s := NewWithClient(api, "ci-queue")

	err := s.InsertIfAbsent(context.Background(), core.QueueRecord{
		EntrantID:  "run-1",
		EnqueuedAt: "2025-06-01T12:00:00.000000Z",
		ExpiresAt:  1748779800,
	})
	require.NoError(t, err)

	require.NotNil(t, api.putInput)
	assert.Equal(t, "ci-queue", aws.ToString(api.putInput.TableName))
	assert.Equal(t, "attribute_not_exists(entrant_id)", aws.ToString(api.putInput.ConditionExpression))

	id := api.putInput.Item["entrant_id"].(*types.AttributeValueMemberS)
	assert.Equal(t, "run-1", id.Value)
	expiry := api.putInput.Item["expires_at"].(*types.AttributeValueMemberN)
	assert.Equal(t, "1748779800", expiry.Value)
}

func TestInsertIfAbsent_MapsConditionalFailureToConflict(t *testing.T) {
	api := &fakeAPI{putErr: &types.ConditionalCheckFailedException{}}
	s := NewWithClient(api, "ci-queue")

	err := s.InsertIfAbsent(context.Background(), core.QueueRecord{EntrantID: "run-1"})
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatConflict))
}

func TestInsertIfAbsent_MapsTransportFailureToStoreError(t *testing.T) {
	cause := errors.New("throttled")
	api := &fakeAPI{putErr: cause}
	s := NewWithClient(api, "ci-queue")

	err := s.InsertIfAbsent(context.Background(), core.QueueRecord{EntrantID: "run-1"})
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
	assert.ErrorIs(t, err, cause)
}

func TestUpdateExpiry_RequestShape(t *testing.T) {
	api := &fakeAPI{}
	s := NewWithClient(api, "ci-queue")

	require.NoError(t, s.UpdateExpiry(context.Background(), "run-1", 1748808600))

	require.NotNil(t, api.updateInput)
	assert.Equal(t, "SET #exp = :new_expiry", aws.ToString(api.updateInput.UpdateExpression))
	assert.Equal(t, "expires_at", api.updateInput.ExpressionAttributeNames["#exp"])

	val := api.updateInput.ExpressionAttributeValues[":new_expiry"].(*types.AttributeValueMemberN)
	assert.Equal(t, "1748808600", val.Value)
}

func TestScanLive_ConsistentFilteredRead(t *testing.T) {
	now := time.Unix(1748779200, 0)
	api := &fakeAPI{
		scanOutputs: []*sdk.ScanOutput{{
			Items: []map[string]types.AttributeValue{
				item("run-1", "2025-06-01T12:00:00.000000Z", "1748779800"),
			},
		}},
	}
	s := NewWithClient(api, "ci-queue")

	records, err := s.ScanLive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, core.QueueRecord{
		EntrantID:  "run-1",
		EnqueuedAt: "2025-06-01T12:00:00.000000Z",
		ExpiresAt:  1748779800,
	}, records[0])

	require.Len(t, api.scanInputs, 1)
	in := api.scanInputs[0]
	assert.True(t, aws.ToBool(in.ConsistentRead), "queue decisions need a consistent read")
	assert.Equal(t, "#exp > :now", aws.ToString(in.FilterExpression))
	nowVal := in.ExpressionAttributeValues[":now"].(*types.AttributeValueMemberN)
	assert.Equal(t, "1748779200", nowVal.Value)
}

func TestScanLive_FollowsPagination(t *testing.T) {
	now := time.Unix(1748779200, 0)
	lastKey := map[string]types.AttributeValue{
		"entrant_id": &types.AttributeValueMemberS{Value: "run-1"},
	}
	api := &fakeAPI{
		scanOutputs: []*sdk.ScanOutput{
			{
				Items:            []map[string]types.AttributeValue{item("run-1", "a", "1748779800")},
				LastEvaluatedKey: lastKey,
			},
			{
				Items: []map[string]types.AttributeValue{item("run-2", "b", "1748779900")},
			},
		},
	}
	s := NewWithClient(api, "ci-queue")

	records, err := s.ScanLive(context.Background(), now)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.Len(t, api.scanInputs, 2)
	assert.Nil(t, api.scanInputs[0].ExclusiveStartKey)
	assert.Equal(t, lastKey, api.scanInputs[1].ExclusiveStartKey)
}

func TestScanLive_MalformedItem(t *testing.T) {
	api := &fakeAPI{
		scanOutputs: []*sdk.ScanOutput{{
			Items: []map[string]types.AttributeValue{
				{"entrant_id": &types.AttributeValueMemberS{Value: "run-1"}},
			},
		}},
	}
	s := NewWithClient(api, "ci-queue")

	_, err := s.ScanLive(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNetwork))
}

func TestDelete_RequestShape(t *testing.T) {
	api := &fakeAPI{}
	s := NewWithClient(api, "ci-queue")

	require.NoError(t, s.Delete(context.Background(), "run-1"))

	require.NotNil(t, api.deleteInput)
	key := api.deleteInput.Key["entrant_id"].(*types.AttributeValueMemberS)
	assert.Equal(t, "run-1", key.Value)
}
