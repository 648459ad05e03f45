package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/c14220110/telekonsul-backend/config"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

const (
	ConsultationCollection = "consultation_requests"
	ChatCollection         = "chats"
	MessageCollection      = "messages"
)

// Connect membuka koneksi MongoDB dan mengembalikan database yang dipakai aplikasi.
func Connect(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("gagal membuka koneksi ke mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("gagal melakukan ping ke mongodb: %w", err)
	}
	return client, client.Database(cfg.MongoDB), nil
}

// EnsureIndexes membuat index yang dibutuhkan query dan constraint unik chat.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		ConsultationCollection: {
			{Keys: bson.D{{Key: "specialty", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "assignedDoctorId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "republishedFromId", Value: 1}, {Key: "status", Value: 1}}},
			// paling banyak satu republish yang masih searching per konsultasi asal
			{
				Keys: bson.D{{Key: "republishedFromId", Value: 1}},
				Options: options.Index().
					SetName("republished_searching_unique").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{
						"republishedFromId": bson.M{"$exists": true},
						"status":            konsultasiModels.StatusSearching,
					}),
			},
		},
		ChatCollection: {
			{
				Keys:    bson.D{{Key: "consultationRequestId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		MessageCollection: {
			{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", storage.ErrDuplicate, err)
	}
	return err
}

func findOptions(sortField string, skip, limit int64) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}
