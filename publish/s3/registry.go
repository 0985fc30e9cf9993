package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/mariabench/publish"
)

// ErrRunExists is returned when registering a run ID that is already
// recorded.
var ErrRunExists = errors.New("run id already registered")

// RunRecord is the registry row for one completed benchmark run.
type RunRecord struct {
	RunID       string
	Dataset     string
	Engine      string
	M           int
	ArchiveKey  string
	CompletedAt time.Time
}

// DDBClient is the subset of the DynamoDB API the registry uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// RunRegistry records completed benchmark runs in DynamoDB. Conditional
// writes give the compare-and-swap semantics object storage lacks, so a
// published run ID can never be silently overwritten by a later run.
//
// Table schema: partition key run_id (string). Create with:
//
//	aws dynamodb create-table \
//	  --table-name mariabench-runs \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S \
//	  --key-schema AttributeName=run_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type RunRegistry struct {
	client    DDBClient
	tableName string
}

// NewRunRegistry creates a registry backed by the given table.
func NewRunRegistry(client DDBClient, tableName string) *RunRegistry {
	return &RunRegistry{
		client:    client,
		tableName: tableName,
	}
}

// Register writes the record iff its run ID is not present yet.
func (r *RunRegistry) Register(ctx context.Context, rec RunRecord) error {
	if rec.RunID == "" {
		return errors.New("run id is required")
	}

	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"run_id":       &types.AttributeValueMemberS{Value: rec.RunID},
			"dataset":      &types.AttributeValueMemberS{Value: rec.Dataset},
			"engine":       &types.AttributeValueMemberS{Value: rec.Engine},
			"m":            &types.AttributeValueMemberN{Value: strconv.Itoa(rec.M)},
			"archive_key":  &types.AttributeValueMemberS{Value: rec.ArchiveKey},
			"completed_at": &types.AttributeValueMemberS{Value: rec.CompletedAt.UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(run_id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", ErrRunExists, rec.RunID)
		}
		return fmt.Errorf("failed to register run: %w", err)
	}
	return nil
}

// Lookup fetches the record for runID. A missing run satisfies
// errors.Is(err, publish.ErrNotFound).
func (r *RunRegistry) Lookup(ctx context.Context, runID string) (RunRecord, error) {
	resp, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: runID},
		},
	})
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to look up run: %w", err)
	}
	if len(resp.Item) == 0 {
		return RunRecord{}, fmt.Errorf("%w: run %s", publish.ErrNotFound, runID)
	}
	return recordFromItem(resp.Item)
}

func recordFromItem(item map[string]types.AttributeValue) (RunRecord, error) {
	var rec RunRecord

	id, ok := item["run_id"].(*types.AttributeValueMemberS)
	if !ok {
		return RunRecord{}, errors.New("invalid run_id attribute")
	}
	rec.RunID = id.Value

	if v, ok := item["dataset"].(*types.AttributeValueMemberS); ok {
		rec.Dataset = v.Value
	}
	if v, ok := item["engine"].(*types.AttributeValueMemberS); ok {
		rec.Engine = v.Value
	}
	if v, ok := item["archive_key"].(*types.AttributeValueMemberS); ok {
		rec.ArchiveKey = v.Value
	}
	if v, ok := item["m"].(*types.AttributeValueMemberN); ok {
		m, err := strconv.Atoi(v.Value)
		if err != nil {
			return RunRecord{}, fmt.Errorf("failed to parse m: %w", err)
		}
		rec.M = m
	}
	if v, ok := item["completed_at"].(*types.AttributeValueMemberS); ok {
		ts, err := time.Parse(time.RFC3339, v.Value)
		if err != nil {
			return RunRecord{}, fmt.Errorf("failed to parse completed_at: %w", err)
		}
		rec.CompletedAt = ts
	}

	return rec, nil
}
