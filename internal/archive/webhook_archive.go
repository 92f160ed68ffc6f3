package archive

import (
	"context"
	"strings"
	"time"

	"github.com/modaplex/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultDatabase   = "modaplex"
	defaultCollection = "webhook_deliveries"
	defaultTimeout    = 5 * time.Second
)

// WebhookDelivery 支付回调原文归档记录
type WebhookDelivery struct {
	TransactionID string            `bson:"transaction_id" json:"transaction_id"`
	Timestamp     string            `bson:"timestamp" json:"timestamp"`
	Signature     string            `bson:"signature" json:"signature"`
	Headers       map[string]string `bson:"headers,omitempty" json:"headers,omitempty"`
	Body          string            `bson:"body" json:"body"`
	Verified      bool              `bson:"verified" json:"verified"`
	Outcome       string            `bson:"outcome" json:"outcome"`
	Error         string            `bson:"error,omitempty" json:"error,omitempty"`
	ReceivedAt    time.Time         `bson:"received_at" json:"received_at"`
}

// 归档结果
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// WebhookArchive 回调归档接口
type WebhookArchive interface {
	Record(ctx context.Context, delivery *WebhookDelivery) error
	ListByTransaction(ctx context.Context, txnID string) ([]WebhookDelivery, error)
	Close(ctx context.Context) error
}

// NoopArchive 未启用归档时使用
type NoopArchive struct{}

// Record 无操作
func (NoopArchive) Record(ctx context.Context, delivery *WebhookDelivery) error { return nil }

// ListByTransaction 返回空
func (NoopArchive) ListByTransaction(ctx context.Context, txnID string) ([]WebhookDelivery, error) {
	return []WebhookDelivery{}, nil
}

// Close 无操作
func (NoopArchive) Close(ctx context.Context) error { return nil }

// MongoArchive MongoDB 实现
type MongoArchive struct {
	client  *mongo.Client
	col     *mongo.Collection
	timeout time.Duration
}

// New 按配置创建归档，未启用时返回 NoopArchive
func New(ctx context.Context, cfg *config.ArchiveConfig) (WebhookArchive, error) {
	if cfg == nil || !cfg.Enabled || strings.TrimSpace(cfg.URI) == "" {
		return NoopArchive{}, nil
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	database := strings.TrimSpace(cfg.Database)
	if database == "" {
		database = defaultDatabase
	}
	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = defaultCollection
	}
	col := client.Database(database).Collection(collection)
	if _, err := col.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "transaction_id", Value: 1}, {Key: "received_at", Value: -1}},
	}); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &MongoArchive{client: client, col: col, timeout: timeout}, nil
}

// Record 写入一次回调投递
func (a *MongoArchive) Record(ctx context.Context, delivery *WebhookDelivery) error {
	if delivery == nil {
		return nil
	}
	if delivery.ReceivedAt.IsZero() {
		delivery.ReceivedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	_, err := a.col.InsertOne(ctx, delivery)
	return err
}

// ListByTransaction 查询某笔交易的全部投递记录，按接收时间倒序
func (a *MongoArchive) ListByTransaction(ctx context.Context, txnID string) ([]WebhookDelivery, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	cursor, err := a.col.Find(ctx, bson.M{"transaction_id": txnID},
		options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}}).SetLimit(100))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	rows := make([]WebhookDelivery, 0)
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Close 断开连接
func (a *MongoArchive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
