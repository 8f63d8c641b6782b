// Package mongostore — реализация store.Store поверх MongoDB.
// Коллекции: modules (уникальный индекс по key), records, плюс
// legacy-коллекции зеркал (retailers, products, bills).
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"billbook/internal/schema"
	"billbook/internal/store"
)

const (
	modulesCollection = "modules"
	recordsCollection = "records"

	opTimeout = 10 * time.Second
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect открывает клиент, проверяет связь и готовит индексы.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	cctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	// key модуля уникален на уровне хранилища
	_, err := s.db.Collection(modulesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(recordsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "module", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func newID() string { return primitive.NewObjectID().Hex() }

// --- модули ---

func (s *Store) EnsureModule(ctx context.Context, m *schema.Module) (bool, error) {
	cp := m.Clone()
	if cp.ID == "" {
		cp.ID = newID()
	}
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
		cp.UpdatedAt = now
	}
	_, err := s.db.Collection(modulesCollection).InsertOne(ctx, cp)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) GetModuleByKey(ctx context.Context, key string) (*schema.Module, error) {
	return s.findModule(ctx, bson.M{"key": key})
}

func (s *Store) GetModuleByID(ctx context.Context, id string) (*schema.Module, error) {
	return s.findModule(ctx, bson.M{"_id": id})
}

func (s *Store) findModule(ctx context.Context, filter bson.M) (*schema.Module, error) {
	var m schema.Module
	err := s.db.Collection(modulesCollection).FindOne(ctx, filter).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListModules(ctx context.Context) ([]*schema.Module, error) {
	cur, err := s.db.Collection(modulesCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "key", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*schema.Module
	for cur.Next(ctx) {
		var m schema.Module
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, cur.Err()
}

func (s *Store) ReplaceModuleFields(ctx context.Context, id string, fields []schema.Field) (*schema.Module, error) {
	var m schema.Module
	err := s.db.Collection(modulesCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{"fields": fields, "updatedAt": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// --- записи ---

func (s *Store) InsertRecord(ctx context.Context, rec *store.Record) error {
	if rec.ID == "" {
		rec.ID = newID()
	}
	_, err := s.db.Collection(recordsCollection).InsertOne(ctx, rec)
	return err
}

func (s *Store) ListRecords(ctx context.Context, module string) ([]*store.Record, error) {
	cur, err := s.db.Collection(recordsCollection).Find(ctx,
		bson.M{"module": module, "status": store.RecordActive},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*store.Record{}
	for cur.Next(ctx) {
		var r store.Record
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		normalizeRecord(&r)
		out = append(out, &r)
	}
	return out, cur.Err()
}

func (s *Store) GetRecord(ctx context.Context, module, id string) (*store.Record, error) {
	var r store.Record
	err := s.db.Collection(recordsCollection).FindOne(ctx,
		bson.M{"_id": id, "module": module, "status": store.RecordActive}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	normalizeRecord(&r)
	return &r, nil
}

func (s *Store) UpdateRecordData(ctx context.Context, module, id string, patch map[string]interface{}, actor string, now time.Time) (*store.Record, error) {
	set := bson.M{"updatedBy": actor, "updatedAt": now}
	for k, v := range patch {
		set["data."+k] = v
	}
	return s.findAndUpdateRecord(ctx,
		bson.M{"_id": id, "module": module, "status": store.RecordActive},
		bson.M{"$set": set})
}

func (s *Store) SoftDeleteRecord(ctx context.Context, module, id, actor string, now time.Time) (*store.Record, error) {
	return s.findAndUpdateRecord(ctx,
		bson.M{"_id": id, "module": module, "status": store.RecordActive},
		bson.M{"$set": bson.M{"status": store.RecordDeleted, "updatedBy": actor, "updatedAt": now}})
}

func (s *Store) RestoreRecord(ctx context.Context, module, id, actor string, now time.Time) (*store.Record, error) {
	return s.findAndUpdateRecord(ctx,
		bson.M{"_id": id, "module": module, "status": store.RecordDeleted},
		bson.M{"$set": bson.M{"status": store.RecordActive, "updatedBy": actor, "updatedAt": now}})
}

func (s *Store) findAndUpdateRecord(ctx context.Context, filter, update bson.M) (*store.Record, error) {
	var r store.Record
	err := s.db.Collection(recordsCollection).FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	normalizeRecord(&r)
	return &r, nil
}

func (s *Store) SetRecordLegacyID(ctx context.Context, module, id, legacyID string) error {
	res, err := s.db.Collection(recordsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "module": module},
		bson.M{"$set": bson.M{"legacyId": legacyID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountRecords(ctx context.Context, module string) (int64, error) {
	return s.db.Collection(recordsCollection).CountDocuments(ctx,
		bson.M{"module": module, "status": store.RecordActive})
}

// --- legacy-коллекции ---

func (s *Store) InsertLegacy(ctx context.Context, collection string, doc map[string]interface{}) (string, error) {
	oid := primitive.NewObjectID()
	d := bson.M{"_id": oid}
	for k, v := range doc {
		d[k] = v
	}
	d["createdAt"] = time.Now().UTC()
	if _, err := s.db.Collection(collection).InsertOne(ctx, d); err != nil {
		return "", err
	}
	return oid.Hex(), nil
}

func (s *Store) UpdateLegacy(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range patch {
		set[k] = v
	}
	res, err := s.db.Collection(collection).UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteLegacy(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListLegacy(ctx context.Context, collection string) ([]map[string]interface{}, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []map[string]interface{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		if oid, ok := doc["_id"].(primitive.ObjectID); ok {
			doc["_id"] = oid.Hex()
		}
		out = append(out, map[string]interface{}(doc))
	}
	return out, cur.Err()
}

// normalizeRecord чинит типы после bson-декодирования: data приходит как
// bson.M c примитивами драйвера, а движок ждёт план JSON-подобных типов.
func normalizeRecord(r *store.Record) {
	if r.Data == nil {
		r.Data = map[string]interface{}{}
		return
	}
	for k, v := range r.Data {
		r.Data[k] = normalizeValue(v)
	}
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, it := range t {
			out[i] = normalizeValue(it)
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, it := range t {
			out[k] = normalizeValue(it)
		}
		return out
	default:
		return v
	}
}
