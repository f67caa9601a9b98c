package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"conversation-store/internal/domain"
	"conversation-store/internal/metrics"
)

const (
	attrID             = "id"
	attrMessageID      = "messageId"
	attrUserID         = "userId"
	attrUserName       = "userName"
	attrConversationID = "conversationId"
	attrMessage        = "message"
	attrMessageType    = "messageType"
	attrTimestamp      = "timestamp"
	attrDateCreated    = "dateCreated"
	attrDocumentType   = "documentType"
	attrCreatedAt      = "createdAt"
	attrLastActivity   = "lastActivity"
	attrMessageCount   = "messageCount"
	attrIsActive       = "isActive"
	attrTTL            = "ttl"

	// DefaultPartitionKeyPath is the partition key path used when none is configured.
	DefaultPartitionKeyPath = "/userId"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Key identifies one document inside a partition, with its timestamp when the
// document is a message.
type Key struct {
	ID        string
	Timestamp string
}

// Client is the document store client for the conversation table. Every
// document lives in the partition of its user; the sort key is the document
// id. Message documents are also projected into a sparse local secondary
// index sorted by timestamp.
type Client struct {
	api       dynamodbAPI
	tableName string
	pkAttr    string
	indexName string
	metrics   *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithMetrics records call durations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a new repository Client. partitionKeyPath is a single-segment
// path such as "/userId"; empty means DefaultPartitionKeyPath.
func New(api dynamodbAPI, tableName, partitionKeyPath string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	pkAttr, err := PartitionKeyAttribute(partitionKeyPath)
	if err != nil {
		return nil, err
	}
	c := &Client{
		api:       api,
		tableName: tableName,
		pkAttr:    pkAttr,
		indexName: TimestampIndexName(pkAttr),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TableName returns the physical table name for a database and container.
func TableName(database, container string) string {
	return database + "." + container
}

// TimestampIndexName returns the name of the message timeline index.
func TimestampIndexName(pkAttr string) string {
	return pkAttr + "-timestamp-index"
}

// PartitionKeyAttribute maps a partition key path to its attribute name.
func PartitionKeyAttribute(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPartitionKeyPath
	}
	attr := strings.TrimPrefix(path, "/")
	if attr == "" || strings.Contains(attr, "/") {
		return "", fmt.Errorf("repository: unsupported partition key path %q", path)
	}
	return attr, nil
}

// Describe reads the table description and checks that its key schema and
// timeline index match this client. It doubles as the reachability probe.
func (c *Client) Describe(ctx context.Context) error {
	defer c.metrics.ObserveCall("DescribeTable", time.Now())

	out, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.tableName),
	})
	if err != nil {
		return fmt.Errorf("repository: Describe: %w", err)
	}
	if out == nil || out.Table == nil {
		return fmt.Errorf("repository: Describe: %w: empty description", ErrSchemaMismatch)
	}

	var hash, rng string
	for _, k := range out.Table.KeySchema {
		switch k.KeyType {
		case types.KeyTypeHash:
			hash = aws.ToString(k.AttributeName)
		case types.KeyTypeRange:
			rng = aws.ToString(k.AttributeName)
		}
	}
	if hash != c.pkAttr || rng != attrID {
		return fmt.Errorf("repository: Describe: %w: key schema (%s, %s), want (%s, %s)",
			ErrSchemaMismatch, hash, rng, c.pkAttr, attrID)
	}
	for _, idx := range out.Table.LocalSecondaryIndexes {
		if aws.ToString(idx.IndexName) == c.indexName {
			return nil
		}
	}
	return fmt.Errorf("repository: Describe: %w: missing index %s", ErrSchemaMismatch, c.indexName)
}

// PutMessage writes a message document. Message ids are unique so the write
// never replaces another message.
func (c *Client) PutMessage(ctx context.Context, msg domain.Message) error {
	if msg.ID == "" || msg.UserID == "" {
		return errors.New("repository: PutMessage: id and user id are required")
	}
	defer c.metrics.ObserveCall("PutItem", time.Now())

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      c.messageItem(msg),
	})
	if err != nil {
		return fmt.Errorf("repository: PutMessage: %w", err)
	}
	return nil
}

// maxPageSize caps the per-request Limit; queryAll keeps paging until it has
// what the caller asked for.
const maxPageSize = 1000

// QueryMessages returns up to limit message documents of a conversation,
// newest first. A limit <= 0 returns every message.
func (c *Client) QueryMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(c.indexName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		FilterExpression:       aws.String("#cid = :cid AND attribute_exists(#mt)"),
		ExpressionAttributeNames: map[string]string{
			"#pk":  c.pkAttr,
			"#cid": attrConversationID,
			"#mt":  attrMessageType,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: userID},
			":cid": &types.AttributeValueMemberS{Value: conversationID},
		},
		// Read newest first so LIMIT favors the most recent context.
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(min(limit, maxPageSize)))
	}

	items, err := c.queryAll(ctx, in, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: QueryMessages: %w", err)
	}

	msgs := make([]domain.Message, 0, len(items))
	for _, item := range items {
		msg, err := c.itemToMessage(item)
		if err != nil {
			return nil, fmt.Errorf("repository: QueryMessages unmarshal: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// QueryMessageKeys returns the keys of every non-metadata document of a
// conversation, newest first.
func (c *Client) QueryMessageKeys(ctx context.Context, userID, conversationID string) ([]Key, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		IndexName:              aws.String(c.indexName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		FilterExpression:       aws.String("#cid = :cid AND (attribute_not_exists(#dt) OR #dt <> :meta)"),
		ProjectionExpression:   aws.String("#id, #ts"),
		ExpressionAttributeNames: map[string]string{
			"#pk":  c.pkAttr,
			"#cid": attrConversationID,
			"#dt":  attrDocumentType,
			"#id":  attrID,
			"#ts":  attrTimestamp,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: userID},
			":cid":  &types.AttributeValueMemberS{Value: conversationID},
			":meta": &types.AttributeValueMemberS{Value: domain.DocumentTypeConversation},
		},
		ScanIndexForward: aws.Bool(false),
	}

	items, err := c.queryAll(ctx, in, 0)
	if err != nil {
		return nil, fmt.Errorf("repository: QueryMessageKeys: %w", err)
	}
	return itemsToKeys(items)
}

// QueryConversationKeys returns the keys of every document (messages and
// metadata) that belongs to a conversation.
func (c *Client) QueryConversationKeys(ctx context.Context, userID, conversationID string) ([]Key, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		FilterExpression:       aws.String("#cid = :cid"),
		ProjectionExpression:   aws.String("#id"),
		ExpressionAttributeNames: map[string]string{
			"#pk":  c.pkAttr,
			"#cid": attrConversationID,
			"#id":  attrID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: userID},
			":cid": &types.AttributeValueMemberS{Value: conversationID},
		},
	}

	items, err := c.queryAll(ctx, in, 0)
	if err != nil {
		return nil, fmt.Errorf("repository: QueryConversationKeys: %w", err)
	}
	return itemsToKeys(items)
}

// GetMeta reads the metadata document of a conversation. It returns
// ErrNotFound when the conversation has none.
func (c *Client) GetMeta(ctx context.Context, userID, conversationID string) (domain.ConversationMeta, error) {
	defer c.metrics.ObserveCall("GetItem", time.Now())

	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            c.key(userID, domain.ConversationMetaID(conversationID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ConversationMeta{}, fmt.Errorf("repository: GetMeta: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ConversationMeta{}, ErrNotFound
	}

	meta, err := c.itemToMeta(out.Item)
	if err != nil {
		return domain.ConversationMeta{}, fmt.Errorf("repository: GetMeta decode: %w", err)
	}
	return meta, nil
}

// PutMeta writes or replaces the metadata document. It never fails because
// the document already exists.
func (c *Client) PutMeta(ctx context.Context, meta domain.ConversationMeta) (domain.ConversationMeta, error) {
	if meta.ID == "" || meta.UserID == "" {
		return domain.ConversationMeta{}, errors.New("repository: PutMeta: id and user id are required")
	}
	defer c.metrics.ObserveCall("PutItem", time.Now())

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      c.metaItem(meta),
	})
	if err != nil {
		return domain.ConversationMeta{}, fmt.Errorf("repository: PutMeta: %w", err)
	}
	return meta, nil
}

// QueryConversations returns the metadata documents of one user.
func (c *Client) QueryConversations(ctx context.Context, userID string) ([]domain.ConversationMeta, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#id, :prefix)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": c.pkAttr,
			"#id": attrID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userID},
			":prefix": &types.AttributeValueMemberS{Value: domain.ConversationIDPrefix},
		},
	}

	items, err := c.queryAll(ctx, in, 0)
	if err != nil {
		return nil, fmt.Errorf("repository: QueryConversations: %w", err)
	}
	return c.itemsToMetas(items)
}

// ScanConversations returns every metadata document in the table.
func (c *Client) ScanConversations(ctx context.Context) ([]domain.ConversationMeta, error) {
	in := &dynamodb.ScanInput{
		TableName:                aws.String(c.tableName),
		FilterExpression:         aws.String("#dt = :meta"),
		ExpressionAttributeNames: map[string]string{"#dt": attrDocumentType},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":meta": &types.AttributeValueMemberS{Value: domain.DocumentTypeConversation},
		},
	}

	var items []map[string]types.AttributeValue
	err := c.scanPages(ctx, in, func(out *dynamodb.ScanOutput) {
		items = append(items, out.Items...)
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ScanConversations: %w", err)
	}
	return c.itemsToMetas(items)
}

// Delete removes one document. Deleting a missing document succeeds.
func (c *Client) Delete(ctx context.Context, userID, id string) error {
	defer c.metrics.ObserveCall("DeleteItem", time.Now())

	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       c.key(userID, id),
	})
	if err != nil {
		return fmt.Errorf("repository: Delete %s: %w", id, err)
	}
	return nil
}

// CountAll counts every document in the table.
func (c *Client) CountAll(ctx context.Context) (int64, error) {
	n, err := c.count(ctx, &dynamodb.ScanInput{})
	if err != nil {
		return 0, fmt.Errorf("repository: CountAll: %w", err)
	}
	return n, nil
}

// CountDocumentType counts documents whose documentType equals docType.
func (c *Client) CountDocumentType(ctx context.Context, docType string) (int64, error) {
	n, err := c.count(ctx, equalsFilter(attrDocumentType, docType))
	if err != nil {
		return 0, fmt.Errorf("repository: CountDocumentType %s: %w", docType, err)
	}
	return n, nil
}

// CountMessageType counts message documents whose messageType equals msgType.
func (c *Client) CountMessageType(ctx context.Context, msgType string) (int64, error) {
	n, err := c.count(ctx, equalsFilter(attrMessageType, msgType))
	if err != nil {
		return 0, fmt.Errorf("repository: CountMessageType %s: %w", msgType, err)
	}
	return n, nil
}

// LatestTimestamp returns the most recent timestamp among message documents
// across the table. It returns ErrNotFound when there are none.
func (c *Client) LatestTimestamp(ctx context.Context) (string, error) {
	in := &dynamodb.ScanInput{
		TableName:            aws.String(c.tableName),
		FilterExpression:     aws.String("attribute_exists(#mt)"),
		ProjectionExpression: aws.String("#ts"),
		ExpressionAttributeNames: map[string]string{
			"#mt": attrMessageType,
			"#ts": attrTimestamp,
		},
	}

	var (
		latest     string
		latestTime time.Time
	)
	err := c.scanPages(ctx, in, func(out *dynamodb.ScanOutput) {
		for _, item := range out.Items {
			ts, err := strAttr(item, attrTimestamp)
			if err != nil {
				continue
			}
			t, err := time.Parse(time.RFC3339Nano, ts)
			if err != nil {
				continue
			}
			if latest == "" || t.After(latestTime) {
				latest, latestTime = ts, t
			}
		}
	})
	if err != nil {
		return "", fmt.Errorf("repository: LatestTimestamp: %w", err)
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return latest, nil
}

// queryAll follows LastEvaluatedKey until the partition is exhausted or, when
// want > 0, until want items have been collected.
func (c *Client) queryAll(ctx context.Context, in *dynamodb.QueryInput, want int) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := c.query(ctx, in)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return items, nil
		}
		items = append(items, out.Items...)
		if want > 0 && len(items) >= want {
			return items[:want], nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (c *Client) query(ctx context.Context, in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
	defer c.metrics.ObserveCall("Query", time.Now())
	return c.api.Query(ctx, in)
}

func (c *Client) scanPages(ctx context.Context, in *dynamodb.ScanInput, page func(*dynamodb.ScanOutput)) error {
	for {
		out, err := c.scan(ctx, in)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		page(out)
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (c *Client) scan(ctx context.Context, in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
	defer c.metrics.ObserveCall("Scan", time.Now())
	return c.api.Scan(ctx, in)
}

// count runs a count-only scan with the filter carried by in.
func (c *Client) count(ctx context.Context, in *dynamodb.ScanInput) (int64, error) {
	in.TableName = aws.String(c.tableName)
	in.Select = types.SelectCount

	var total int64
	err := c.scanPages(ctx, in, func(out *dynamodb.ScanOutput) {
		total += int64(out.Count)
	})
	return total, err
}

func equalsFilter(attr, value string) *dynamodb.ScanInput {
	return &dynamodb.ScanInput{
		FilterExpression:         aws.String("#a = :v"),
		ExpressionAttributeNames: map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	}
}

func (c *Client) key(userID, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		c.pkAttr: &types.AttributeValueMemberS{Value: userID},
		attrID:   &types.AttributeValueMemberS{Value: id},
	}
}

func (c *Client) messageItem(msg domain.Message) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		attrID:             &types.AttributeValueMemberS{Value: msg.ID},
		attrMessageID:      &types.AttributeValueMemberS{Value: msg.MessageID},
		attrUserID:         &types.AttributeValueMemberS{Value: msg.UserID},
		attrConversationID: &types.AttributeValueMemberS{Value: msg.ConversationID},
		attrMessage:        &types.AttributeValueMemberS{Value: msg.Text},
		attrMessageType:    &types.AttributeValueMemberS{Value: msg.MessageType},
		attrTimestamp:      &types.AttributeValueMemberS{Value: msg.Timestamp},
		attrDateCreated:    &types.AttributeValueMemberS{Value: msg.DateCreated},
		attrTTL:            &types.AttributeValueMemberN{Value: strconv.FormatInt(msg.TTL, 10)},
	}
	if msg.UserName != "" {
		item[attrUserName] = &types.AttributeValueMemberS{Value: msg.UserName}
	}
	item[c.pkAttr] = &types.AttributeValueMemberS{Value: msg.UserID}
	return item
}

func (c *Client) metaItem(meta domain.ConversationMeta) map[string]types.AttributeValue {
	item := make(map[string]types.AttributeValue, len(meta.Extra)+12)
	for k, v := range meta.Extra {
		item[k] = anyAttr(v)
	}
	item[attrID] = &types.AttributeValueMemberS{Value: meta.ID}
	item[attrUserID] = &types.AttributeValueMemberS{Value: meta.UserID}
	item[attrConversationID] = &types.AttributeValueMemberS{Value: meta.ConversationID}
	item[attrDocumentType] = &types.AttributeValueMemberS{Value: meta.DocumentType}
	item[attrCreatedAt] = &types.AttributeValueMemberS{Value: meta.CreatedAt}
	item[attrLastActivity] = &types.AttributeValueMemberS{Value: meta.LastActivity}
	item[attrMessageCount] = &types.AttributeValueMemberN{Value: strconv.Itoa(meta.MessageCount)}
	item[attrIsActive] = &types.AttributeValueMemberBOOL{Value: meta.IsActive}
	item[attrTTL] = &types.AttributeValueMemberN{Value: strconv.FormatInt(meta.TTL, 10)}
	if meta.UserName != "" {
		item[attrUserName] = &types.AttributeValueMemberS{Value: meta.UserName}
	}
	item[c.pkAttr] = &types.AttributeValueMemberS{Value: meta.UserID}
	return item
}

// itemToMessage converts a DynamoDB attribute map to a Message.
func (c *Client) itemToMessage(item map[string]types.AttributeValue) (domain.Message, error) {
	id, err := strAttr(item, attrID)
	if err != nil {
		return domain.Message{}, err
	}
	convID, err := strAttr(item, attrConversationID)
	if err != nil {
		return domain.Message{}, err
	}
	text, err := strAttr(item, attrMessage)
	if err != nil {
		return domain.Message{}, err
	}
	ts, err := strAttr(item, attrTimestamp)
	if err != nil {
		return domain.Message{}, err
	}
	userID, _ := strAttr(item, c.pkAttr)
	msgID, _ := strAttr(item, attrMessageID)
	msgType, _ := strAttr(item, attrMessageType)
	userName, _ := strAttr(item, attrUserName)
	created, _ := strAttr(item, attrDateCreated)
	ttl, _ := int64Attr(item, attrTTL)

	return domain.Message{
		ID:             id,
		MessageID:      msgID,
		ConversationID: convID,
		UserID:         userID,
		UserName:       userName,
		Text:           text,
		MessageType:    msgType,
		Timestamp:      ts,
		DateCreated:    created,
		TTL:            ttl,
	}, nil
}

// itemToMeta converts a DynamoDB attribute map to a ConversationMeta. Any
// attribute it does not know about lands in Extra so a rewrite keeps it.
func (c *Client) itemToMeta(item map[string]types.AttributeValue) (domain.ConversationMeta, error) {
	id, err := strAttr(item, attrID)
	if err != nil {
		return domain.ConversationMeta{}, err
	}
	convID, err := strAttr(item, attrConversationID)
	if err != nil {
		return domain.ConversationMeta{}, err
	}
	count := 0
	if _, ok := item[attrMessageCount]; ok {
		count, err = intAttr(item, attrMessageCount)
		if err != nil {
			return domain.ConversationMeta{}, err
		}
	}
	userID, _ := strAttr(item, c.pkAttr)
	userName, _ := strAttr(item, attrUserName)
	docType, _ := strAttr(item, attrDocumentType)
	createdAt, _ := strAttr(item, attrCreatedAt)
	lastActivity, _ := strAttr(item, attrLastActivity)
	ttl, _ := int64Attr(item, attrTTL)
	active := false
	if v, ok := item[attrIsActive].(*types.AttributeValueMemberBOOL); ok {
		active = v.Value
	}

	meta := domain.ConversationMeta{
		ID:             id,
		ConversationID: convID,
		UserID:         userID,
		UserName:       userName,
		DocumentType:   docType,
		CreatedAt:      createdAt,
		LastActivity:   lastActivity,
		MessageCount:   count,
		IsActive:       active,
		TTL:            ttl,
	}
	for k, v := range item {
		if k == c.pkAttr || isMetaAttr(k) {
			continue
		}
		val, ok := attrAny(v)
		if !ok {
			continue
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]any)
		}
		meta.Extra[k] = val
	}
	return meta, nil
}

func (c *Client) itemsToMetas(items []map[string]types.AttributeValue) ([]domain.ConversationMeta, error) {
	metas := make([]domain.ConversationMeta, 0, len(items))
	for _, item := range items {
		meta, err := c.itemToMeta(item)
		if err != nil {
			return nil, fmt.Errorf("repository: unmarshal metadata: %w", err)
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func itemsToKeys(items []map[string]types.AttributeValue) ([]Key, error) {
	keys := make([]Key, 0, len(items))
	for _, item := range items {
		id, err := strAttr(item, attrID)
		if err != nil {
			return nil, err
		}
		ts, _ := strAttr(item, attrTimestamp) // metadata has none
		keys = append(keys, Key{ID: id, Timestamp: ts})
	}
	return keys, nil
}

// IsReservedMetaField reports whether name is managed by the store and cannot
// be supplied as an extra metadata field.
func IsReservedMetaField(name string) bool {
	return isMetaAttr(name)
}

func isMetaAttr(name string) bool {
	switch name {
	case attrID, attrUserID, attrConversationID, attrUserName, attrDocumentType,
		attrCreatedAt, attrLastActivity, attrMessageCount, attrIsActive, attrTTL:
		return true
	}
	return false
}

func anyAttr(v any) types.AttributeValue {
	switch x := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}
	case string:
		return &types.AttributeValueMemberS{Value: x}
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(x)}
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(x, 10)}
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(x, 'f', -1, 64)}
	default:
		return &types.AttributeValueMemberS{Value: fmt.Sprint(x)}
	}
}

func attrAny(v types.AttributeValue) (any, bool) {
	switch x := v.(type) {
	case *types.AttributeValueMemberS:
		return x.Value, true
	case *types.AttributeValueMemberBOOL:
		return x.Value, true
	case *types.AttributeValueMemberNULL:
		return nil, true
	case *types.AttributeValueMemberN:
		if n, err := strconv.ParseInt(x.Value, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(x.Value, 64); err == nil {
			return f, true
		}
	}
	return nil, false
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	n, err := int64Attr(item, key)
	return int(n), err
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
