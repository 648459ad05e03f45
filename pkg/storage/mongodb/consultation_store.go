package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

type ConsultationStore struct {
	coll *mongo.Collection
}

func NewConsultationStore(db *mongo.Database) *ConsultationStore {
	return &ConsultationStore{coll: db.Collection(ConsultationCollection)}
}

func (s *ConsultationStore) Create(ctx context.Context, c *models.ConsultationRequest) error {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	_, err := s.coll.InsertOne(ctx, c)
	return translate(err)
}

func (s *ConsultationStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ConsultationRequest, error) {
	var c models.ConsultationRequest
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *ConsultationStore) UpdateSearching(ctx context.Context, id primitive.ObjectID, userID int64, edit models.ConsultationEdit) (*models.ConsultationRequest, error) {
	filter := bson.M{"_id": id, "userId": userID, "status": models.StatusSearching}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.ConsultationRequest
	err := s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": editFields(edit, time.Now().UTC())}, opts).Decode(&c)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func editFields(edit models.ConsultationEdit, at time.Time) bson.M {
	set := bson.M{"updatedAt": at}
	if edit.Title != nil {
		set["title"] = *edit.Title
	}
	if edit.Description != nil {
		set["description"] = *edit.Description
	}
	if edit.Specialty != nil {
		set["specialty"] = *edit.Specialty
	}
	if edit.Attachments != nil {
		set["attachments"] = edit.Attachments
	}
	return set
}

func (s *ConsultationStore) DeleteUnlessInProgress(ctx context.Context, id primitive.ObjectID, userID int64) error {
	filter := bson.M{"_id": id, "userId": userID, "status": bson.M{"$ne": models.StatusInProgress}}
	res, err := s.coll.DeleteOne(ctx, filter)
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func buildConsultationFilter(q models.ConsultationQuery) bson.M {
	filter := bson.M{}
	if q.UserID != nil {
		filter["userId"] = *q.UserID
	}
	if q.AssignedDoctorID != nil {
		filter["assignedDoctorId"] = *q.AssignedDoctorID
	}
	if q.Specialty != "" {
		filter["specialty"] = q.Specialty
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if len(q.ExcludeIDs) > 0 {
		filter["_id"] = bson.M{"$nin": q.ExcludeIDs}
	}
	if q.RepublishedFrom != nil {
		filter["republishedFromId"] = *q.RepublishedFrom
	}
	if q.CreatedBefore != nil {
		filter["createdAt"] = bson.M{"$lt": *q.CreatedBefore}
	}
	if q.NotReminded {
		filter["reminderSentAt"] = bson.M{"$exists": false}
	}
	return filter
}

func (s *ConsultationStore) List(ctx context.Context, q models.ConsultationQuery) ([]models.ConsultationRequest, error) {
	sortField := "createdAt"
	if q.SortByUpdated {
		sortField = "updatedAt"
	}
	cur, err := s.coll.Find(ctx, buildConsultationFilter(q), findOptions(sortField, q.Skip, q.Limit))
	if err != nil {
		return nil, err
	}
	out := []models.ConsultationRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ConsultationStore) Count(ctx context.Context, q models.ConsultationQuery) (int64, error) {
	return s.coll.CountDocuments(ctx, buildConsultationFilter(q))
}

func (s *ConsultationStore) IDsAssignedTo(ctx context.Context, doctorID int64) ([]primitive.ObjectID, error) {
	return s.distinctIDs(ctx, bson.M{"assignedDoctorId": doctorID})
}

func (s *ConsultationStore) IDsRepublishedFrom(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.distinctIDs(ctx, bson.M{"republishedFromId": bson.M{"$in": ids}})
}

func (s *ConsultationStore) distinctIDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	raw, err := s.coll.Distinct(ctx, "_id", filter)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *ConsultationStore) Claim(ctx context.Context, id primitive.ObjectID, doctorID int64, at time.Time) (*models.ConsultationRequest, error) {
	filter := bson.M{
		"_id":              id,
		"status":           models.StatusSearching,
		"assignedDoctorId": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"status":           models.StatusInProgress,
		"assignedDoctorId": doctorID,
		"startedAt":        at,
		"updatedAt":        at,
	}}
	return s.findOneAndUpdate(ctx, filter, update)
}

func (s *ConsultationStore) Complete(ctx context.Context, id primitive.ObjectID, doctorID int64, at time.Time) (*models.ConsultationRequest, error) {
	filter := bson.M{
		"_id":              id,
		"status":           models.StatusInProgress,
		"assignedDoctorId": doctorID,
	}
	update := bson.M{"$set": bson.M{
		"status":      models.StatusCompleted,
		"completedAt": at,
		"updatedAt":   at,
	}}
	return s.findOneAndUpdate(ctx, filter, update)
}

func (s *ConsultationStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.ConsultationRequest, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.ConsultationRequest
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *ConsultationStore) MarkReminded(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"reminderSentAt": at}})
	return translate(err)
}

func (s *ConsultationStore) DeleteSearchingByUser(ctx context.Context, userID int64) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID, "status": models.StatusSearching})
	return err
}
