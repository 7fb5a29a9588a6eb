// Package mongo is the document-store backend. Records are kept one document
// per transaction; fields outside the known set are stored as-is.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"finease/internal/core"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// BuildURI composes an Atlas SRV connection string from credentials.
func BuildURI(username, password, host string) string {
	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(username, password),
		Host:     host,
		Path:     "/",
		RawQuery: "appName=Cluster0",
	}
	return u.String()
}

type Store struct {
	client *driver.Client
	coll   *driver.Collection
}

// Connect opens the client pool with Stable API v1 and pings the deployment.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := driver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	slog.InfoContext(ctx, "Pinged MongoDB deployment", "database", cfg.Database, "collection", cfg.Collection)

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// EnsureIndexes creates the owner and category lookup indexes. It is
// idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	names, err := s.coll.Indexes().CreateMany(ctx, indexModels())
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	slog.InfoContext(ctx, "MongoDB indexes ensured", "indexes", names)
	return nil
}

func indexModels() []driver.IndexModel {
	return []driver.IndexModel{
		{
			Keys:    bson.D{{Key: core.FieldEmail, Value: 1}},
			Options: options.Index().SetName("email_1"),
		},
		{
			Keys: bson.D{
				{Key: core.FieldEmail, Value: 1},
				{Key: core.FieldCategory, Value: 1},
				{Key: core.FieldType, Value: 1},
			},
			Options: options.Index().SetName("email_1_category_1_type_1"),
		},
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	doc, err := toDocument(tx)
	if err != nil {
		return "", err
	}
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprint(res.InsertedID), nil
	}
	return oid.Hex(), nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Transaction, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return core.Transaction{}, core.ErrNotFound
	}
	var doc bson.M
	err = s.coll.FindOne(ctx, bson.D{{Key: core.FieldID, Value: oid}}).Decode(&doc)
	if errors.Is(err, driver.ErrNoDocuments) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return fromDocument(doc)
}

func (s *Store) ListByOwner(ctx context.Context, email string) ([]core.Transaction, error) {
	cur, err := s.coll.Find(ctx, ownerFilter(email), options.Find().SetSort(bson.D{{Key: core.FieldID, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]core.Transaction, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		tx, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Update sets only the supplied fields. The read that precedes it in the
// service and this write are not atomic; last writer wins.
func (s *Store) Update(ctx context.Context, id string, patch core.TransactionPatch) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, core.ErrNotFound
	}
	set, err := patchDocument(patch)
	if err != nil {
		return 0, err
	}
	if len(set) == 0 {
		return 0, nil
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: core.FieldID, Value: oid}},
		bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, fmt.Errorf("update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return 0, core.ErrNotFound
	}
	return res.ModifiedCount, nil
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: core.FieldID, Value: oid}})
	if err != nil {
		return 0, fmt.Errorf("delete transaction: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) SumCategoryType(ctx context.Context, email, category string, typ core.TransactionType) (core.Money, error) {
	var rows []struct {
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := s.aggregate(ctx, categoryTypePipeline(email, category, typ), &rows); err != nil {
		return core.Money{}, fmt.Errorf("sum category type: %w", err)
	}
	if len(rows) == 0 {
		return core.Money{}, nil
	}
	return moneyOf(rows[0].Total)
}

func (s *Store) SumByType(ctx context.Context, email string) ([]core.TypeTotal, error) {
	var rows []struct {
		Type  string  `bson:"_id"`
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := s.aggregate(ctx, byTypePipeline(email), &rows); err != nil {
		return nil, fmt.Errorf("sum by type: %w", err)
	}
	out := make([]core.TypeTotal, 0, len(rows))
	for _, r := range rows {
		total, err := moneyOf(r.Total)
		if err != nil {
			return nil, err
		}
		out = append(out, core.TypeTotal{Type: core.TransactionType(r.Type), Total: total})
	}
	return out, nil
}

func (s *Store) SumByCategory(ctx context.Context, email string) ([]core.CategoryAmount, error) {
	var rows []struct {
		Name  string  `bson:"_id"`
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := s.aggregate(ctx, byCategoryPipeline(email), &rows); err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	out := make([]core.CategoryAmount, 0, len(rows))
	for _, r := range rows {
		total, err := moneyOf(r.Total)
		if err != nil {
			return nil, err
		}
		out = append(out, core.CategoryAmount{Name: r.Name, Value: total})
	}
	return out, nil
}

func (s *Store) SumByMonth(ctx context.Context, email string) ([]core.MonthTypeTotal, error) {
	var rows []struct {
		Key struct {
			Month int    `bson:"month"`
			Type  string `bson:"type"`
		} `bson:"_id"`
		Total primitive.Decimal128 `bson:"total"`
	}
	if err := s.aggregate(ctx, byMonthPipeline(email), &rows); err != nil {
		return nil, fmt.Errorf("sum by month: %w", err)
	}
	out := make([]core.MonthTypeTotal, 0, len(rows))
	for _, r := range rows {
		total, err := moneyOf(r.Total)
		if err != nil {
			return nil, err
		}
		out = append(out, core.MonthTypeTotal{
			Month: r.Key.Month,
			Type:  core.TransactionType(r.Key.Type),
			Total: total,
		})
	}
	return out, nil
}

func (s *Store) aggregate(ctx context.Context, pipeline driver.Pipeline, out any) error {
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}
