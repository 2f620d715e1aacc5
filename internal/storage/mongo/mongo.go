// mongo — журнал просмотренных ID в коллекции MongoDB (_id = ID объявления).
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/pribylovaa/go-marketplace-monitor/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	seenCollection = "seen_ids"
	defaultDBName  = "marketplace"
)

// Ledger — реализация storage.SeenLedger поверх MongoDB.
type Ledger struct {
	client *mongodriver.Client
	seen   *mongodriver.Collection
	now    func() time.Time
}

// New подключается к MongoDB, проверяет соединение и готовит коллекцию.
func New(ctx context.Context, uri, dbName string) (*Ledger, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}
	if dbName == "" {
		dbName = defaultDBName
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	l := &Ledger{
		client: cli,
		seen:   cli.Database(dbName).Collection(seenCollection),
		now:    time.Now,
	}

	if err := l.ensureIndexes(ctx); err != nil {
		l.Close()
		return nil, err
	}

	return l, nil
}

// ensureIndexes создаёт индекс по first_seen_at для выборок «что нового за период».
func (l *Ledger) ensureIndexes(ctx context.Context) error {
	_, err := l.seen.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "first_seen_at", Value: -1}},
		Options: options.Index().SetName("first_seen_at_desc"),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

// Contains ищет документ с _id = id.
func (l *Ledger) Contains(ctx context.Context, id string) (bool, error) {
	const op = "storage.mongo.Contains"

	n, err := l.seen.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// Merge выполняет неупорядоченный bulk upsert с $setOnInsert;
// число добавленных — UpsertedCount.
func (l *Ledger) Merge(ctx context.Context, ids []string) (int, error) {
	const op = "storage.mongo.Merge"

	ids = storage.Dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	now := l.now().UTC()
	writes := make([]mongodriver.WriteModel, 0, len(ids))
	for _, id := range ids {
		writes = append(writes, mongodriver.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{"first_seen_at": now}}).
			SetUpsert(true))
	}

	res, err := l.seen.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(res.UpsertedCount), nil
}

// Len — число документов в коллекции.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	const op = "storage.mongo.Len"

	n, err := l.seen.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}

// Reset удаляет все документы коллекции.
func (l *Ledger) Reset(ctx context.Context) error {
	const op = "storage.mongo.Reset"

	if _, err := l.seen.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close отключает клиента с коротким дедлайном.
func (l *Ledger) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = l.client.Disconnect(ctx)
}

// Проверка на соответствие интерфейсу SeenLedger.
var _ storage.SeenLedger = (*Ledger)(nil)
