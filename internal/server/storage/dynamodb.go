package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/keygate/internal/common"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
// *dynamodb.Client satisfies it; tests substitute a fake.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoDBOptions configures the DynamoDB-backed store. AccessKeyID and
// SecretAccessKey are optional; when empty the default credential chain is
// used. Endpoint overrides the base endpoint for local DynamoDB.
type DynamoDBOptions struct {
	Table           string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// DynamoDBStore stores items in a single table with an (id, sortKey) key
// schema, the layout of the original deployment.
type DynamoDBStore struct {
	api   DynamoAPI
	table string
}

func NewDynamoDBStore(ctx context.Context, opts DynamoDBOptions) (*DynamoDBStore, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &DynamoDBStore{api: client, table: opts.Table}, nil
}

// NewDynamoDBStoreWithClient wires an existing client, mainly for tests.
func NewDynamoDBStoreWithClient(api DynamoAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{api: api, table: table}
}

// dynamoItem is the table representation: the document is stored as a map
// attribute so items stay readable in the console.
type dynamoItem struct {
	ID      string         `dynamodbav:"id"`
	SortKey string         `dynamodbav:"sortKey"`
	Doc     map[string]any `dynamodbav:"doc"`
	Version int64          `dynamodbav:"version"`
}

func toDynamoItem(item *Item) (*dynamoItem, error) {
	doc := map[string]any{}
	if len(item.Doc) > 0 {
		if err := json.Unmarshal(item.Doc, &doc); err != nil {
			return nil, fmt.Errorf("invalid document: %w", err)
		}
	}
	return &dynamoItem{ID: item.ID, SortKey: item.SortKey, Doc: doc, Version: item.Version}, nil
}

func fromDynamoItem(di *dynamoItem) (*Item, error) {
	doc, err := json.Marshal(di.Doc)
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return &Item{ID: di.ID, SortKey: di.SortKey, Doc: doc, Version: di.Version}, nil
}

func (s *DynamoDBStore) key(id, sortKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":      &types.AttributeValueMemberS{Value: id},
		"sortKey": &types.AttributeValueMemberS{Value: sortKey},
	}
}

func (s *DynamoDBStore) Get(ctx context.Context, id, sortKey string) (*Item, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id, sortKey),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get error: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, common.ErrNotFound
	}

	di := &dynamoItem{}
	if err := attributevalue.UnmarshalMap(out.Item, di); err != nil {
		return nil, fmt.Errorf("dynamodb unmarshal error: %w", err)
	}

	return fromDynamoItem(di)
}

func (s *DynamoDBStore) List(ctx context.Context, id, sortKeyPrefix string) ([]*Item, error) {
	keyCondition := "id = :id"
	values := map[string]types.AttributeValue{
		":id": &types.AttributeValueMemberS{Value: id},
	}
	if sortKeyPrefix != "" {
		keyCondition = "id = :id AND begins_with(sortKey, :prefix)"
		values[":prefix"] = &types.AttributeValueMemberS{Value: sortKeyPrefix}
	}

	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb query error: %w", err)
	}

	items := make([]*Item, 0, len(out.Items))
	for _, raw := range out.Items {
		di := &dynamoItem{}
		if err := attributevalue.UnmarshalMap(raw, di); err != nil {
			return nil, fmt.Errorf("dynamodb unmarshal error: %w", err)
		}
		item, err := fromDynamoItem(di)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

func (s *DynamoDBStore) Create(ctx context.Context, item *Item) error {
	di, err := toDynamoItem(item)
	if err != nil {
		return err
	}
	di.Version = 1

	av, err := attributevalue.MarshalMap(di)
	if err != nil {
		return fmt.Errorf("dynamodb marshal error: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("dynamodb put error: %w", err)
	}

	return nil
}

func (s *DynamoDBStore) Update(ctx context.Context, id, sortKey string, update UpdateFunc) error {
	current, err := s.Get(ctx, id, sortKey)
	if err != nil {
		return err
	}

	updated := *current
	updated.Doc = append([]byte(nil), current.Doc...)
	if err := update(&updated); err != nil {
		return err
	}
	updated.Version = current.Version + 1

	di, err := toDynamoItem(&updated)
	if err != nil {
		return err
	}
	di.Version = updated.Version

	av, err := attributevalue.MarshalMap(di)
	if err != nil {
		return fmt.Errorf("dynamodb marshal error: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("version = :version"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(current.Version, 10)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return common.ErrVersionConflict
		}
		return fmt.Errorf("dynamodb put error: %w", err)
	}

	return nil
}

func (s *DynamoDBStore) Delete(ctx context.Context, id, sortKey string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id, sortKey),
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete error: %w", err)
	}
	return nil
}
