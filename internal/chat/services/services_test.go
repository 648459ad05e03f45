package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/c14220110/telekonsul-backend/internal/chat/models"
	"github.com/c14220110/telekonsul-backend/internal/common/apperror"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/internal/testutil"
	"github.com/c14220110/telekonsul-backend/internal/testutil/memstore"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
	"github.com/c14220110/telekonsul-backend/ws"
)

func expectCode(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", code)
	}
	if got := apperror.CodeOf(err); got != code {
		t.Fatalf("expected status %d, got %d (%v)", code, got, err)
	}
}

type fixture struct {
	svc          *ChatService
	stores       storage.Stores
	publisher    *testutil.Publisher
	notifier     *testutil.Notifier
	patient      *penggunaModels.User
	doctor       *penggunaModels.User
	consultation *konsultasiModels.ConsultationRequest
	chat         *models.Chat
}

// newFixture menyiapkan satu konsultasi in_progress beserta chat-nya.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	stores := memstore.New().Stores()
	f := &fixture{
		stores:    stores,
		publisher: testutil.NewPublisher(),
		notifier:  &testutil.Notifier{},
	}
	f.svc = NewChatService(stores, utils.NewFileStorage(t.TempDir(), 1<<20), f.publisher, f.notifier, "", zerolog.Nop())
	clock := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	f.patient = testutil.CreatePatient(t, stores, "ani")
	doctorUser, doctorProfile := testutil.CreateDoctor(t, stores, "budi", "general")
	f.doctor = doctorUser

	f.consultation = &konsultasiModels.ConsultationRequest{UserID: f.patient.ID, Title: "Demam tinggi", Description: "Sejak dua hari", Specialty: "general", Status: konsultasiModels.StatusSearching}
	if err := stores.Consultations.Create(ctx, f.consultation); err != nil {
		t.Fatalf("create consultation: %v", err)
	}
	claimed, err := stores.Consultations.Claim(ctx, f.consultation.ID, doctorProfile.ID, clock)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	f.consultation = claimed
	f.chat = &models.Chat{ConsultationRequestID: f.consultation.ID, Participants: []int64{doctorUser.ID, f.patient.ID}}
	if err := stores.Chats.Create(ctx, f.chat); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return f
}

func (f *fixture) send(t *testing.T, from int64, content string) *models.Message {
	t.Helper()
	m, err := f.svc.SendMessage(context.Background(), from, SendInput{ChatID: f.chat.ID.Hex(), Content: content})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	return m
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.send(t, f.doctor.ID, "Silakan cek https://example.com/panduan dan istirahat")
	if m.Type != models.MessageText || len(m.Links) != 1 || m.Links[0] != "https://example.com/panduan" {
		t.Fatalf("unexpected message %+v", m)
	}

	chat, _ := f.stores.Chats.FindByID(ctx, f.chat.ID)
	if chat.LastMessage == nil || chat.LastMessage.MessageID != m.ID {
		t.Fatalf("expected last message preview, got %+v", chat.LastMessage)
	}
	events := f.publisher.EventsOfType(EventNewMessage)
	if len(events) != 1 || len(events[0].UserIDs) != 2 {
		t.Fatalf("expected new_message to both participants, got %+v", events)
	}
	if f.notifier.Count() != 1 || f.notifier.Pushes[0].UserIDs[0] != f.patient.ID {
		t.Fatalf("expected push to offline patient, got %+v", f.notifier.Pushes)
	}

	f.publisher.Online[f.patient.ID] = true
	f.send(t, f.doctor.ID, "halo")
	if f.notifier.Count() != 1 {
		t.Fatalf("expected no push to online patient, got %d", f.notifier.Count())
	}

	_, err := f.svc.SendMessage(ctx, f.patient.ID, SendInput{ChatID: f.chat.ID.Hex(), Content: "   "})
	expectCode(t, err, http.StatusBadRequest)
}

func TestSendMessageAccessAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := testutil.CreatePatient(t, f.stores, "caca")

	_, err := f.svc.SendMessage(ctx, stranger.ID, SendInput{ChatID: f.chat.ID.Hex(), Content: "hi"})
	expectCode(t, err, http.StatusForbidden)
	_, err = f.svc.SendMessage(ctx, f.patient.ID, SendInput{ChatID: "bad", Content: "hi"})
	expectCode(t, err, http.StatusBadRequest)
	_, err = f.svc.SendMessage(ctx, f.patient.ID, SendInput{ChatID: "64b7f0c2a1b2c3d4e5f60718", Content: "hi"})
	expectCode(t, err, http.StatusNotFound)

	doctor, _ := f.stores.Doctors.FindByUserID(ctx, f.doctor.ID)
	if _, err := f.stores.Consultations.Complete(ctx, f.consultation.ID, doctor.ID, time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err = f.svc.SendMessage(ctx, f.patient.ID, SendInput{ChatID: f.chat.ID.Hex(), Content: "hi"})
	expectCode(t, err, http.StatusBadRequest)
}

func TestMessagesPagesNewestFirstAndReturnsOldestFirst(t *testing.T) {
	f := newFixture(t)
	var sent []*models.Message
	for _, c := range []string{"1", "2", "3", "4", "5"} {
		sent = append(sent, f.send(t, f.patient.ID, c))
	}

	result, err := f.svc.Messages(context.Background(), f.doctor.ID, f.chat.ID.Hex(), 1, 2)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if result.Pagination.TotalItems != 5 || result.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination %+v", result.Pagination)
	}
	if len(result.Messages) != 2 || result.Messages[0].Content != "4" || result.Messages[1].Content != "5" {
		t.Fatalf("expected [4 5], got %+v", result.Messages)
	}

	result, _ = f.svc.Messages(context.Background(), f.doctor.ID, f.chat.ID.Hex(), 3, 2)
	if len(result.Messages) != 1 || result.Messages[0].ID != sent[0].ID {
		t.Fatalf("expected oldest message on last page, got %+v", result.Messages)
	}
}

func TestUnreadCountAndMarkOpened(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.send(t, f.doctor.ID, "satu")
	f.send(t, f.doctor.ID, "dua")
	f.send(t, f.patient.ID, "balasan")

	n, err := f.svc.UnreadCount(ctx, f.patient.ID)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 unread, got %d err=%v", n, err)
	}

	if _, err := f.svc.MarkOpened(ctx, f.patient.ID, f.chat.ID.Hex()); err != nil {
		t.Fatalf("mark opened: %v", err)
	}
	if n, _ := f.svc.UnreadCount(ctx, f.patient.ID); n != 0 {
		t.Fatalf("expected 0 unread after opening, got %d", n)
	}
	events := f.publisher.EventsOfType(EventMessagesRead)
	if len(events) != 1 || events[0].UserIDs[0] != f.doctor.ID {
		t.Fatalf("expected messages_read to doctor, got %+v", events)
	}

	f.send(t, f.doctor.ID, "tiga")
	items, err := f.svc.List(ctx, f.patient.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one chat, got %+v err=%v", items, err)
	}
	item := items[0]
	if item.UnreadCount != 1 || item.Title != "Demam tinggi" || item.Status != konsultasiModels.StatusInProgress {
		t.Fatalf("unexpected chat item %+v", item)
	}
	if item.Participant == nil || item.Participant.ID != f.doctor.ID || item.Participant.Specialty != "general" {
		t.Fatalf("expected doctor participant with specialty, got %+v", item.Participant)
	}
	if item.LastMessage == nil || item.LastMessage.Content != "tiga" {
		t.Fatalf("expected last message preview, got %+v", item.LastMessage)
	}
}

func TestAttachmentsMediaDocumentsAndLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(nil)
	expectCode(t, err, http.StatusBadRequest)

	uploaded, err := f.svc.Upload(testutil.MultipartFiles(t, "attachments",
		testutil.File{Name: "ruam.png", Content: "png"},
		testutil.File{Name: "hasil-lab.pdf", Content: "pdf"},
	))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded[0].Kind != models.KindImage || uploaded[1].Kind != models.KindDocument {
		t.Fatalf("unexpected kinds %+v", uploaded)
	}
	if !strings.HasPrefix(uploaded[0].URL, "/uploads/") {
		t.Fatalf("expected /uploads/ url, got %s", uploaded[0].URL)
	}

	_, err = f.svc.SendMessage(ctx, f.patient.ID, SendInput{ChatID: f.chat.ID.Hex(), Attachments: []models.Attachment{{URL: "/patientFiles/x.png"}}})
	expectCode(t, err, http.StatusBadRequest)

	m, err := f.svc.SendMessage(ctx, f.patient.ID, SendInput{ChatID: f.chat.ID.Hex(), Attachments: uploaded})
	if err != nil {
		t.Fatalf("send attachments: %v", err)
	}
	if m.Type != models.MessageFile {
		t.Fatalf("expected file message for mixed attachments, got %s", m.Type)
	}
	image, _ := f.svc.SendMessage(ctx, f.patient.ID, SendInput{ChatID: f.chat.ID.Hex(), Attachments: uploaded[:1]})
	if image.Type != models.MessageImage {
		t.Fatalf("expected image message, got %s", image.Type)
	}
	f.send(t, f.doctor.ID, "baca http://a.test/x dan https://b.test/y")

	media, err := f.svc.Media(ctx, f.doctor.ID, f.chat.ID.Hex())
	if err != nil || len(media) != 2 {
		t.Fatalf("expected 2 media items, got %d err=%v", len(media), err)
	}
	docs, _ := f.svc.Documents(ctx, f.doctor.ID, f.chat.ID.Hex())
	if len(docs) != 1 || docs[0].Name != "hasil-lab.pdf" {
		t.Fatalf("expected one document, got %+v", docs)
	}
	links, _ := f.svc.Links(ctx, f.patient.ID, f.chat.ID.Hex())
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %+v", links)
	}

	summary, err := f.svc.Summary(ctx, f.patient.ID, f.chat.ID.Hex())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.MessageCount != 3 || summary.AttachmentCount != 3 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.Doctor == nil || summary.Doctor.ID != f.doctor.ID || summary.Patient == nil || summary.Patient.ID != f.patient.ID {
		t.Fatalf("unexpected participants %+v / %+v", summary.Doctor, summary.Patient)
	}
}

func TestDeleteMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.send(t, f.patient.ID, "pesan satu")
	second := f.send(t, f.patient.ID, "pesan dua")

	expectCode(t, f.svc.DeleteForBoth(ctx, f.doctor.ID, second.ID.Hex()), http.StatusForbidden)

	if err := f.svc.DeleteForOne(ctx, f.doctor.ID, first.ID.Hex()); err != nil {
		t.Fatalf("delete for one: %v", err)
	}
	doctorView, _ := f.svc.Messages(ctx, f.doctor.ID, f.chat.ID.Hex(), 1, 10)
	patientView, _ := f.svc.Messages(ctx, f.patient.ID, f.chat.ID.Hex(), 1, 10)
	if len(doctorView.Messages) != 1 || len(patientView.Messages) != 2 {
		t.Fatalf("expected hide for doctor only, got %d/%d", len(doctorView.Messages), len(patientView.Messages))
	}

	if err := f.svc.DeleteForBoth(ctx, f.patient.ID, second.ID.Hex()); err != nil {
		t.Fatalf("delete for both: %v", err)
	}
	stored, _ := f.stores.Messages.FindByID(ctx, second.ID)
	if !stored.DeletedForAll || stored.Content != "" {
		t.Fatalf("expected blanked message, got %+v", stored)
	}
	if len(f.publisher.EventsOfType(EventMessageDeleted)) != 1 {
		t.Fatalf("expected message_deleted event")
	}
	chat, _ := f.stores.Chats.FindByID(ctx, f.chat.ID)
	if chat.LastMessage.Content != "" {
		t.Fatalf("expected last message preview cleared, got %q", chat.LastMessage.Content)
	}

	if err := f.svc.DeleteAll(ctx, f.patient.ID, f.chat.ID.Hex()); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	patientView, _ = f.svc.Messages(ctx, f.patient.ID, f.chat.ID.Hex(), 1, 10)
	doctorView, _ = f.svc.Messages(ctx, f.doctor.ID, f.chat.ID.Hex(), 1, 10)
	if len(patientView.Messages) != 0 || len(doctorView.Messages) != 1 {
		t.Fatalf("expected chat cleared for patient only, got %d/%d", len(patientView.Messages), len(doctorView.Messages))
	}
}

func TestStatsAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.send(t, f.doctor.ID, "Minum paracetamol")
	f.send(t, f.doctor.ID, "Kontrol lagi besok")
	f.send(t, f.patient.ID, "Baik dok")

	stats, err := f.svc.Stats(ctx, f.doctor.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChats != 1 || stats.ActiveChats != 1 || stats.CompletedChats != 0 || stats.MessagesSent != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	empty, err := f.svc.Stats(ctx, 99999)
	if err != nil || empty.TotalChats != 0 || empty.MessagesSent != 0 {
		t.Fatalf("expected empty stats, got %+v err=%v", empty, err)
	}

	chats, _ := f.svc.SearchChats(ctx, f.patient.ID, "BUDI")
	if len(chats) != 1 {
		t.Fatalf("expected chat matched by doctor name, got %d", len(chats))
	}
	chats, _ = f.svc.SearchChats(ctx, f.patient.ID, "demam")
	if len(chats) != 1 {
		t.Fatalf("expected chat matched by title, got %d", len(chats))
	}
	chats, _ = f.svc.SearchChats(ctx, f.patient.ID, "tidak ada")
	if len(chats) != 0 {
		t.Fatalf("expected no match, got %d", len(chats))
	}
	_, err = f.svc.SearchChats(ctx, f.patient.ID, " ")
	expectCode(t, err, http.StatusBadRequest)

	messages, err := f.svc.SearchMessages(ctx, f.patient.ID, "PARACETAMOL")
	if err != nil || len(messages) != 1 {
		t.Fatalf("expected one message hit, got %+v err=%v", messages, err)
	}
}

func TestSummaryPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.SummaryPDF(ctx, f.patient.ID, f.chat.ID.Hex(), &bytes.Buffer{})
	expectCode(t, err, http.StatusServiceUnavailable)

	font := "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	if _, err := os.Stat(font); err != nil {
		t.Skip("DejaVuSans not installed")
	}
	f.svc.fontPath = font
	var buf bytes.Buffer
	if err := f.svc.SummaryPDF(ctx, f.patient.ID, f.chat.ID.Hex(), &buf); err != nil {
		t.Fatalf("summary pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf output")
	}
}

func TestHandleEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := func(typ string, data interface{}) ws.Event {
		raw, _ := json.Marshal(data)
		return ws.Event{Type: typ, Data: raw}
	}

	if err := f.svc.HandleEvent(ctx, f.patient.ID, event("send_message", map[string]string{"chatId": f.chat.ID.Hex(), "content": "dari ws"})); err != nil {
		t.Fatalf("send_message: %v", err)
	}
	if len(f.publisher.EventsOfType(EventNewMessage)) != 1 {
		t.Fatalf("expected new_message after ws send")
	}

	if err := f.svc.HandleEvent(ctx, f.patient.ID, event("typing", map[string]string{"chatId": f.chat.ID.Hex()})); err != nil {
		t.Fatalf("typing: %v", err)
	}
	typing := f.publisher.EventsOfType(EventTyping)
	if len(typing) != 1 || typing[0].UserIDs[0] != f.doctor.ID {
		t.Fatalf("expected typing to doctor, got %+v", typing)
	}

	if err := f.svc.HandleEvent(ctx, f.doctor.ID, event("read", map[string]string{"chatId": f.chat.ID.Hex()})); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n, _ := f.svc.UnreadCount(ctx, f.doctor.ID); n != 0 {
		t.Fatalf("expected read to clear unread, got %d", n)
	}

	if err := f.svc.HandleEvent(ctx, f.doctor.ID, ws.Event{Type: "dance"}); err == nil {
		t.Fatalf("expected error for unknown event")
	}
	stranger := testutil.CreatePatient(t, f.stores, "dedi")
	err := f.svc.HandleEvent(ctx, stranger.ID, event("typing", map[string]string{"chatId": f.chat.ID.Hex()}))
	expectCode(t, err, http.StatusForbidden)
}
