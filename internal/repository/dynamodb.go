package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/danielkolev/offersrv-sub002/internal/model"
)

const (
	// DefaultOffersTable: имя таблицы предложений по умолчанию.
	DefaultOffersTable = "offers"
	// OwnerIndex: глобальный вторичный индекс (owner_id, created_at).
	OwnerIndex = "owner_id-created_at-index"

	// Фиксированная ширина дробной части, чтобы строки сортировались как время.
	itemTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type offerItem struct {
	ID        string `dynamodbav:"id"`
	OwnerID   int64  `dynamodbav:"owner_id"`
	OfferData string `dynamodbav:"offer_data"`
	IsDraft   bool   `dynamodbav:"is_draft"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoOfferRepository хранит предложения в DynamoDB.
//
// Требования к таблице:
//   - PK: id (string)
//   - GSI owner_id-created_at-index: owner_id (number), created_at (string)
//
// Условных уникальных индексов в DynamoDB нет, а чтения из GSI согласованы
// только в конечном счёте. Поэтому известный черновик обновляется по первичному
// ключу, индекс читается только для первой записи, а лишние черновики владельца
// удаляются при записи и при оформлении.
type DynamoOfferRepository struct {
	ddb       dynamoAPI
	tableName string
	now       func() time.Time
}

// NewDynamoOfferRepository создаёт репозиторий поверх клиента DynamoDB.
func NewDynamoOfferRepository(ddb *dynamodb.Client, tableName string) *DynamoOfferRepository {
	return newDynamoOfferRepository(ddb, tableName)
}

func newDynamoOfferRepository(ddb dynamoAPI, tableName string) *DynamoOfferRepository {
	if tableName == "" {
		tableName = DefaultOffersTable
	}
	return &DynamoOfferRepository{
		ddb:       ddb,
		tableName: tableName,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewDynamoDBConfig собирает конфигурацию AWS SDK. Для локального DynamoDB
// задаётся endpoint, а учётные данные берутся статические.
func NewDynamoDBConfig(ctx context.Context, region, endpoint, accessKey, secretKey string) (aws.Config, error) {
	if region == "" {
		region = "us-east-1"
	}
	if accessKey == "" {
		accessKey = "local"
	}
	if secretKey == "" {
		secretKey = "local"
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	}

	if endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == dynamodb.ServiceID {
				return aws.Endpoint{URL: endpoint, SigningRegion: region, HostnameImmutable: true}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(resolver))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// GetLatestDraft возвращает самый свежий черновик владельца или nil.
func (r *DynamoOfferRepository) GetLatestDraft(ctx context.Context, ownerID int64) (*model.SavedOffer, error) {
	items, err := r.queryOwner(ctx, ownerID, true)
	if err != nil {
		return nil, storeErr("query drafts", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return fromOfferItem(items[0])
}

// UpsertDraft создаёт или обновляет единственный черновик владельца.
// Непустой draftID обновляет эту запись по первичному ключу без чтения индекса.
func (r *DynamoOfferRepository) UpsertDraft(ctx context.Context, ownerID int64, draftID string, o model.Offer) (*model.SavedOffer, error) {
	o.IsDraft = true
	data, err := json.Marshal(o)
	if err != nil {
		return nil, storeErr("marshal draft", err)
	}

	now := r.now().Format(itemTimeLayout)
	it := offerItem{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		OfferData: string(data),
		IsDraft:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	known, err := r.getDraftItem(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}

	var extras []offerItem
	if known != nil {
		it.ID = known.ID
		it.CreatedAt = known.CreatedAt
	} else {
		drafts, err := r.queryOwner(ctx, ownerID, true)
		if err != nil {
			return nil, storeErr("query drafts", err)
		}
		if len(drafts) > 0 {
			it.ID = drafts[0].ID
			it.CreatedAt = drafts[0].CreatedAt
			extras = drafts[1:]
		}
	}

	if err := r.putDraft(ctx, it); err != nil {
		return nil, err
	}

	for _, extra := range extras {
		if err := r.deleteItem(ctx, extra.ID); err != nil {
			return nil, storeErr("delete extra draft", err)
		}
	}

	return fromOfferItem(it)
}

// getDraftItem читает черновик владельца по первичному ключу.
// Возвращает nil, если id пуст или записи нет.
func (r *DynamoOfferRepository) getDraftItem(ctx context.Context, ownerID int64, draftID string) (*offerItem, error) {
	if draftID == "" {
		return nil, nil
	}

	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: draftID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get draft", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var it offerItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, storeErr("unmarshal offer item", err)
	}
	if it.OwnerID != ownerID {
		return nil, nil
	}
	if !it.IsDraft {
		return nil, storeErr("put draft", fmt.Errorf("draft %s was finalized concurrently", it.ID))
	}
	return &it, nil
}

func (r *DynamoOfferRepository) putDraft(ctx context.Context, it offerItem) error {
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return storeErr("marshal draft item", err)
	}

	// Перезаписать можно только отсутствующую запись или черновик.
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id) OR #is_draft = :true"),
		ExpressionAttributeNames: map[string]string{
			"#id":       "id",
			"#is_draft": "is_draft",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return storeErr("put draft", fmt.Errorf("draft %s was finalized concurrently", it.ID))
		}
		return storeErr("put draft", err)
	}
	return nil
}

// Finalize переводит черновик в постоянное сохранённое предложение.
func (r *DynamoOfferRepository) Finalize(ctx context.Context, draftID string) (*model.SavedOffer, error) {
	if draftID == "" {
		return nil, ErrOfferNotFound
	}

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: draftID},
		},
		ConditionExpression: aws.String("attribute_exists(#id)"),
		UpdateExpression:    aws.String("SET #is_draft = :false, #updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#id":         "id",
			"#is_draft":   "is_draft",
			"#updated_at": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":false":      &types.AttributeValueMemberBOOL{Value: false},
			":updated_at": &types.AttributeValueMemberS{Value: r.now().Format(itemTimeLayout)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil, ErrOfferNotFound
		}
		return nil, storeErr("finalize offer", err)
	}

	var it offerItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return nil, storeErr("unmarshal offer item", err)
	}

	if err := r.deleteOtherDrafts(ctx, it.OwnerID, it.ID); err != nil {
		return nil, storeErr("delete extra draft", err)
	}
	return fromOfferItem(it)
}

// deleteOtherDrafts удаляет черновики владельца, кроме keepID.
// Индекс может ещё показывать keepID черновиком, поэтому он пропускается явно.
func (r *DynamoOfferRepository) deleteOtherDrafts(ctx context.Context, ownerID int64, keepID string) error {
	drafts, err := r.queryOwner(ctx, ownerID, true)
	if err != nil {
		return err
	}
	for _, d := range drafts {
		if d.ID == keepID {
			continue
		}
		if err := r.deleteItem(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete удаляет предложение. Удаление отсутствующего предложения ошибкой не считается.
func (r *DynamoOfferRepository) Delete(ctx context.Context, offerID string) error {
	if offerID == "" {
		return nil
	}
	if err := r.deleteItem(ctx, offerID); err != nil {
		return storeErr("delete offer", err)
	}
	return nil
}

// GetOffer возвращает предложение владельца по идентификатору.
func (r *DynamoOfferRepository) GetOffer(ctx context.Context, ownerID int64, offerID string) (*model.SavedOffer, error) {
	if offerID == "" {
		return nil, ErrOfferNotFound
	}

	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: offerID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get offer", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrOfferNotFound
	}

	var it offerItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, storeErr("unmarshal offer item", err)
	}
	if it.OwnerID != ownerID {
		return nil, ErrOfferNotFound
	}
	return fromOfferItem(it)
}

// ListOffers возвращает предложения владельца, начиная с самых новых.
func (r *DynamoOfferRepository) ListOffers(ctx context.Context, ownerID int64) ([]model.SavedOffer, error) {
	items, err := r.queryOwner(ctx, ownerID, false)
	if err != nil {
		return nil, storeErr("query offers", err)
	}

	res := make([]model.SavedOffer, 0, len(items))
	for _, it := range items {
		so, err := fromOfferItem(it)
		if err != nil {
			return nil, err
		}
		res = append(res, *so)
	}
	return res, nil
}

// queryOwner читает все записи владельца из индекса, новые первыми.
// Limit не используется: он применяется до FilterExpression.
func (r *DynamoOfferRepository) queryOwner(ctx context.Context, ownerID int64, draftsOnly bool) ([]offerItem, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(OwnerIndex),
		KeyConditionExpression: aws.String("#owner_id = :owner_id"),
		ExpressionAttributeNames: map[string]string{
			"#owner_id": "owner_id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner_id": &types.AttributeValueMemberN{Value: strconv.FormatInt(ownerID, 10)},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if draftsOnly {
		in.FilterExpression = aws.String("#is_draft = :true")
		in.ExpressionAttributeNames["#is_draft"] = "is_draft"
		in.ExpressionAttributeValues[":true"] = &types.AttributeValueMemberBOOL{Value: true}
	}

	var items []offerItem
	for {
		out, err := r.ddb.Query(ctx, in)
		if err != nil {
			return nil, err
		}

		var page []offerItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal offer items: %w", err)
		}
		items = append(items, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})
	return items, nil
}

func (r *DynamoOfferRepository) deleteItem(ctx context.Context, id string) error {
	_, err := r.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	return err
}

func fromOfferItem(it offerItem) (*model.SavedOffer, error) {
	o, err := model.DecodeOffer([]byte(it.OfferData))
	if err != nil {
		return nil, storeErr("decode offer_data", err)
	}
	o.IsDraft = it.IsDraft

	createdAt, _ := time.Parse(itemTimeLayout, it.CreatedAt)
	updatedAt, _ := time.Parse(itemTimeLayout, it.UpdatedAt)

	return &model.SavedOffer{
		ID:        it.ID,
		OwnerID:   it.OwnerID,
		Offer:     o,
		IsDraft:   it.IsDraft,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
