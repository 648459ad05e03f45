package mongodb

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	chatModels "github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
)

func TestBuildConsultationFilterAvailable(t *testing.T) {
	blocked := primitive.NewObjectID()
	filter := buildConsultationFilter(models.ConsultationQuery{
		Specialty:  "cardiology",
		Status:     models.StatusSearching,
		ExcludeIDs: []primitive.ObjectID{blocked},
	})
	if filter["specialty"] != "cardiology" || filter["status"] != models.StatusSearching {
		t.Fatalf("unexpected filter %v", filter)
	}
	nin, ok := filter["_id"].(bson.M)["$nin"].([]primitive.ObjectID)
	if !ok || len(nin) != 1 || nin[0] != blocked {
		t.Fatalf("expected $nin with blocked id, got %v", filter["_id"])
	}
	if _, ok := filter["userId"]; ok {
		t.Fatalf("did not expect userId filter")
	}
}

func TestBuildConsultationFilterReminder(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	filter := buildConsultationFilter(models.ConsultationQuery{CreatedBefore: &cutoff, NotReminded: true})
	if filter["createdAt"].(bson.M)["$lt"] != cutoff {
		t.Fatalf("expected createdAt cutoff, got %v", filter["createdAt"])
	}
	if filter["reminderSentAt"].(bson.M)["$exists"] != false {
		t.Fatalf("expected reminderSentAt $exists false, got %v", filter["reminderSentAt"])
	}
}

func TestEditFieldsOnlySetsProvidedFields(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	title := "Demam"
	set := editFields(models.ConsultationEdit{Title: &title}, at)
	if set["title"] != title || set["updatedAt"] != at {
		t.Fatalf("unexpected $set %v", set)
	}
	for _, key := range []string{"description", "specialty", "attachments", "status", "assignedDoctorId"} {
		if _, ok := set[key]; ok {
			t.Fatalf("did not expect %s in $set, got %v", key, set)
		}
	}

	set = editFields(models.ConsultationEdit{Attachments: []string{"/patientFiles/x.pdf"}}, at)
	if paths, ok := set["attachments"].([]string); !ok || len(paths) != 1 {
		t.Fatalf("expected attachments in $set, got %v", set)
	}
}

func TestBuildMessageFilterEscapesSearchText(t *testing.T) {
	filter := buildMessageFilter(chatModels.MessageQuery{VisibleTo: 7, Text: "a+b"})
	re, ok := filter["content"].(primitive.Regex)
	if !ok || re.Pattern != `a\+b` || re.Options != "i" {
		t.Fatalf("expected escaped case-insensitive regex, got %v", filter["content"])
	}
	if filter["deletedFor"].(bson.M)["$ne"] != int64(7) {
		t.Fatalf("expected visibility filter, got %v", filter["deletedFor"])
	}
}

func TestBuildMessageFilterSenderPrecedence(t *testing.T) {
	filter := buildMessageFilter(chatModels.MessageQuery{SenderID: 3, NotSender: 4})
	if filter["senderId"] != int64(3) {
		t.Fatalf("expected SenderID to win, got %v", filter["senderId"])
	}
}
