package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

type ChatStore struct {
	coll *mongo.Collection
}

func NewChatStore(db *mongo.Database) *ChatStore {
	return &ChatStore{coll: db.Collection(ChatCollection)}
}

func (s *ChatStore) Create(ctx context.Context, c *models.Chat) error {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.LastOpened == nil {
		c.LastOpened = map[string]time.Time{}
	}
	_, err := s.coll.InsertOne(ctx, c)
	return translate(err)
}

func (s *ChatStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *ChatStore) FindByConsultation(ctx context.Context, consultationID primitive.ObjectID) (*models.Chat, error) {
	return s.findOne(ctx, bson.M{"consultationRequestId": consultationID})
}

func (s *ChatStore) findOne(ctx context.Context, filter bson.M) (*models.Chat, error) {
	var c models.Chat
	if err := s.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *ChatStore) ListByParticipant(ctx context.Context, userID int64) ([]models.Chat, error) {
	cur, err := s.coll.Find(ctx, bson.M{"participants": userID}, findOptions("updatedAt", 0, 0))
	if err != nil {
		return nil, err
	}
	out := []models.Chat{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ChatStore) SetLastOpened(ctx context.Context, id primitive.ObjectID, userID int64, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"lastOpened." + models.LastOpenedKey(userID): at}})
}

func (s *ChatStore) SetLastMessage(ctx context.Context, id primitive.ObjectID, preview models.MessagePreview) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{
		"lastMessage": preview,
		"updatedAt":   preview.CreatedAt,
	}})
}

func (s *ChatStore) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
