package mongodb

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{coll: db.Collection(MessageCollection)}
}

func (s *MessageStore) Create(ctx context.Context, m *models.Message) error {
	m.ID = primitive.NewObjectID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.coll.InsertOne(ctx, m)
	return translate(err)
}

func (s *MessageStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var m models.Message
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func buildMessageFilter(q models.MessageQuery) bson.M {
	filter := bson.M{}
	if len(q.ChatIDs) > 0 {
		filter["chatId"] = bson.M{"$in": q.ChatIDs}
	}
	if q.VisibleTo != 0 {
		filter["deletedFor"] = bson.M{"$ne": q.VisibleTo}
	}
	switch {
	case q.SenderID != 0:
		filter["senderId"] = q.SenderID
	case q.NotSender != 0:
		filter["senderId"] = bson.M{"$ne": q.NotSender}
	}
	if q.After != nil {
		filter["createdAt"] = bson.M{"$gt": *q.After}
	}
	if q.HasAttachments {
		filter["attachments.0"] = bson.M{"$exists": true}
	}
	if q.HasLinks {
		filter["links.0"] = bson.M{"$exists": true}
	}
	if q.Text != "" {
		filter["content"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Text), Options: "i"}
		filter["deletedForAll"] = false
	}
	return filter
}

// List mengembalikan pesan dari yang terbaru.
func (s *MessageStore) List(ctx context.Context, q models.MessageQuery) ([]models.Message, error) {
	cur, err := s.coll.Find(ctx, buildMessageFilter(q), findOptions("createdAt", q.Skip, q.Limit))
	if err != nil {
		return nil, err
	}
	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MessageStore) Count(ctx context.Context, q models.MessageQuery) (int64, error) {
	return s.coll.CountDocuments(ctx, buildMessageFilter(q))
}

func (s *MessageStore) HideFor(ctx context.Context, id primitive.ObjectID, userID int64) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"deletedFor": userID}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *MessageStore) HideAllFor(ctx context.Context, chatID primitive.ObjectID, userID int64) error {
	_, err := s.coll.UpdateMany(ctx, bson.M{"chatId": chatID}, bson.M{"$addToSet": bson.M{"deletedFor": userID}})
	return translate(err)
}

func (s *MessageStore) DeleteForAll(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"deletedForAll": true, "content": "", "attachments": []models.Attachment{}},
		"$unset": bson.M{"links": ""},
	})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
