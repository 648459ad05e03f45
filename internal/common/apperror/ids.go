package apperror

import "go.mongodb.org/mongo-driver/bson/primitive"

// ParseObjectID memvalidasi id dokumen Mongo (24 hex). Id tidak valid menjadi 400.
func ParseObjectID(raw, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, BadRequest("Invalid " + label + " ID")
	}
	return id, nil
}
