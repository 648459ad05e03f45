package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	chatModels "github.com/c14220110/telekonsul-backend/internal/chat/models"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

// --- consultations ---

type consultationStore struct{ s *Store }

func cloneConsultation(c konsultasiModels.ConsultationRequest) konsultasiModels.ConsultationRequest {
	c.Attachments = cloneStrings(c.Attachments)
	if c.AssignedDoctorID != nil {
		v := *c.AssignedDoctorID
		c.AssignedDoctorID = &v
	}
	if c.RepublishedFromID != nil {
		v := *c.RepublishedFromID
		c.RepublishedFromID = &v
	}
	return c
}

func (cs consultationStore) Create(_ context.Context, c *konsultasiModels.ConsultationRequest) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.RepublishedFromID != nil && c.Status == konsultasiModels.StatusSearching {
		for _, existing := range s.consultations {
			if existing.RepublishedFromID != nil && *existing.RepublishedFromID == *c.RepublishedFromID &&
				existing.Status == konsultasiModels.StatusSearching {
				return storage.ErrDuplicate
			}
		}
	}
	now := time.Now().UTC()
	c.ID = s.newObjectID()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Attachments == nil {
		c.Attachments = []string{}
	}
	s.consultations[c.ID] = cloneConsultation(*c)
	return nil
}

func (cs consultationStore) FindByID(_ context.Context, id primitive.ObjectID) (*konsultasiModels.ConsultationRequest, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.consultations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	found := cloneConsultation(c)
	return &found, nil
}

func (cs consultationStore) UpdateSearching(_ context.Context, id primitive.ObjectID, userID int64, edit konsultasiModels.ConsultationEdit) (*konsultasiModels.ConsultationRequest, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.consultations[id]
	if !ok || c.UserID != userID || c.Status != konsultasiModels.StatusSearching {
		return nil, storage.ErrNotFound
	}
	if edit.Title != nil {
		c.Title = *edit.Title
	}
	if edit.Description != nil {
		c.Description = *edit.Description
	}
	if edit.Specialty != nil {
		c.Specialty = *edit.Specialty
	}
	if edit.Attachments != nil {
		c.Attachments = cloneStrings(edit.Attachments)
	}
	c.UpdatedAt = time.Now().UTC()
	cs.s.consultations[id] = cloneConsultation(c)
	found := cloneConsultation(c)
	return &found, nil
}

func (cs consultationStore) DeleteUnlessInProgress(_ context.Context, id primitive.ObjectID, userID int64) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.consultations[id]
	if !ok || c.UserID != userID || c.Status == konsultasiModels.StatusInProgress {
		return storage.ErrNotFound
	}
	delete(cs.s.consultations, id)
	return nil
}

// PutConsultation menimpa dokumen konsultasi apa adanya, untuk menyiapkan
// kondisi test seperti status atau dokter yang ditugaskan.
func (s *Store) PutConsultation(c konsultasiModels.ConsultationRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consultations[c.ID] = cloneConsultation(c)
}

func matchConsultation(c konsultasiModels.ConsultationRequest, q konsultasiModels.ConsultationQuery) bool {
	switch {
	case q.UserID != nil && c.UserID != *q.UserID:
		return false
	case q.AssignedDoctorID != nil && !c.AssignedTo(*q.AssignedDoctorID):
		return false
	case q.Specialty != "" && c.Specialty != q.Specialty:
		return false
	case q.Status != "" && c.Status != q.Status:
		return false
	case containsID(q.ExcludeIDs, c.ID):
		return false
	case q.RepublishedFrom != nil && (c.RepublishedFromID == nil || *c.RepublishedFromID != *q.RepublishedFrom):
		return false
	case q.CreatedBefore != nil && !c.CreatedAt.Before(*q.CreatedBefore):
		return false
	case q.NotReminded && c.ReminderSentAt != nil:
		return false
	}
	return true
}

func (cs consultationStore) filter(q konsultasiModels.ConsultationQuery) []konsultasiModels.ConsultationRequest {
	var out []konsultasiModels.ConsultationRequest
	for _, c := range cs.s.consultations {
		if matchConsultation(c, q) {
			out = append(out, cloneConsultation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if q.SortByUpdated {
			return cs.s.newer(out[i].UpdatedAt, out[j].UpdatedAt, out[i].ID, out[j].ID)
		}
		return cs.s.newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (cs consultationStore) List(_ context.Context, q konsultasiModels.ConsultationQuery) ([]konsultasiModels.ConsultationRequest, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	return page(cs.filter(q), q.Skip, q.Limit), nil
}

func (cs consultationStore) Count(_ context.Context, q konsultasiModels.ConsultationQuery) (int64, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	return int64(len(cs.filter(q))), nil
}

func (cs consultationStore) IDsAssignedTo(_ context.Context, doctorID int64) ([]primitive.ObjectID, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	var ids []primitive.ObjectID
	for id, c := range cs.s.consultations {
		if c.AssignedTo(doctorID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (cs consultationStore) IDsRepublishedFrom(_ context.Context, sources []primitive.ObjectID) ([]primitive.ObjectID, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	var ids []primitive.ObjectID
	for id, c := range cs.s.consultations {
		if c.RepublishedFromID != nil && containsID(sources, *c.RepublishedFromID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (cs consultationStore) Claim(_ context.Context, id primitive.ObjectID, doctorID int64, at time.Time) (*konsultasiModels.ConsultationRequest, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.consultations[id]
	if !ok || c.Status != konsultasiModels.StatusSearching || c.AssignedDoctorID != nil {
		return nil, storage.ErrNotFound
	}
	c.Status = konsultasiModels.StatusInProgress
	c.AssignedDoctorID = &doctorID
	c.StartedAt = &at
	c.UpdatedAt = at
	cs.s.consultations[id] = cloneConsultation(c)
	found := cloneConsultation(c)
	return &found, nil
}

func (cs consultationStore) Complete(_ context.Context, id primitive.ObjectID, doctorID int64, at time.Time) (*konsultasiModels.ConsultationRequest, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.consultations[id]
	if !ok || c.Status != konsultasiModels.StatusInProgress || !c.AssignedTo(doctorID) {
		return nil, storage.ErrNotFound
	}
	c.Status = konsultasiModels.StatusCompleted
	c.CompletedAt = &at
	c.UpdatedAt = at
	cs.s.consultations[id] = cloneConsultation(c)
	found := cloneConsultation(c)
	return &found, nil
}

func (cs consultationStore) MarkReminded(_ context.Context, id primitive.ObjectID, at time.Time) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.consultations[id]
	if !ok {
		return nil
	}
	c.ReminderSentAt = &at
	cs.s.consultations[id] = c
	return nil
}

func (cs consultationStore) DeleteSearchingByUser(_ context.Context, userID int64) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	for id, c := range cs.s.consultations {
		if c.UserID == userID && c.Status == konsultasiModels.StatusSearching {
			delete(cs.s.consultations, id)
		}
	}
	return nil
}

// SetCreatedAt mengubah createdAt konsultasi, dipakai test yang bergantung pada umur data.
func (s *Store) SetCreatedAt(id primitive.ObjectID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.consultations[id]; ok {
		c.CreatedAt = at
		s.consultations[id] = c
	}
}

// --- chats ---

type chatStore struct{ s *Store }

func cloneChat(c chatModels.Chat) chatModels.Chat {
	c.Participants = append([]int64(nil), c.Participants...)
	opened := make(map[string]time.Time, len(c.LastOpened))
	for k, v := range c.LastOpened {
		opened[k] = v
	}
	c.LastOpened = opened
	if c.LastMessage != nil {
		preview := *c.LastMessage
		c.LastMessage = &preview
	}
	return c
}

func (cs chatStore) Create(_ context.Context, c *chatModels.Chat) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.chats {
		if existing.ConsultationRequestID == c.ConsultationRequestID {
			return storage.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	c.ID = s.newObjectID()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.LastOpened == nil {
		c.LastOpened = map[string]time.Time{}
	}
	s.chats[c.ID] = cloneChat(*c)
	return nil
}

func (cs chatStore) FindByID(_ context.Context, id primitive.ObjectID) (*chatModels.Chat, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.chats[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	found := cloneChat(c)
	return &found, nil
}

func (cs chatStore) FindByConsultation(_ context.Context, consultationID primitive.ObjectID) (*chatModels.Chat, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	for _, c := range cs.s.chats {
		if c.ConsultationRequestID == consultationID {
			found := cloneChat(c)
			return &found, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (cs chatStore) ListByParticipant(_ context.Context, userID int64) ([]chatModels.Chat, error) {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	out := []chatModels.Chat{}
	for _, c := range cs.s.chats {
		if c.HasParticipant(userID) {
			out = append(out, cloneChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return cs.s.newer(out[i].UpdatedAt, out[j].UpdatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (cs chatStore) SetLastOpened(_ context.Context, id primitive.ObjectID, userID int64, at time.Time) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.chats[id]
	if !ok {
		return storage.ErrNotFound
	}
	c = cloneChat(c)
	c.LastOpened[chatModels.LastOpenedKey(userID)] = at
	cs.s.chats[id] = c
	return nil
}

func (cs chatStore) SetLastMessage(_ context.Context, id primitive.ObjectID, preview chatModels.MessagePreview) error {
	cs.s.mu.Lock()
	defer cs.s.mu.Unlock()
	c, ok := cs.s.chats[id]
	if !ok {
		return storage.ErrNotFound
	}
	c = cloneChat(c)
	c.LastMessage = &preview
	c.UpdatedAt = preview.CreatedAt
	cs.s.chats[id] = c
	return nil
}

// --- messages ---

type messageStore struct{ s *Store }

func cloneMessage(m chatModels.Message) chatModels.Message {
	if m.Attachments != nil {
		m.Attachments = append([]chatModels.Attachment{}, m.Attachments...)
	}
	m.Links = cloneStrings(m.Links)
	m.DeletedFor = append([]int64(nil), m.DeletedFor...)
	return m
}

func (ms messageStore) Create(_ context.Context, m *chatModels.Message) error {
	s := ms.s
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.newObjectID()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messages[m.ID] = cloneMessage(*m)
	return nil
}

func (ms messageStore) FindByID(_ context.Context, id primitive.ObjectID) (*chatModels.Message, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m, ok := ms.s.messages[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	found := cloneMessage(m)
	return &found, nil
}

func matchMessage(m chatModels.Message, q chatModels.MessageQuery) bool {
	switch {
	case len(q.ChatIDs) > 0 && !containsID(q.ChatIDs, m.ChatID):
		return false
	case q.VisibleTo != 0 && m.HiddenFor(q.VisibleTo):
		return false
	case q.SenderID != 0 && m.SenderID != q.SenderID:
		return false
	case q.SenderID == 0 && q.NotSender != 0 && m.SenderID == q.NotSender:
		return false
	case q.After != nil && !m.CreatedAt.After(*q.After):
		return false
	case q.HasAttachments && len(m.Attachments) == 0:
		return false
	case q.HasLinks && len(m.Links) == 0:
		return false
	case q.Text != "" && (m.DeletedForAll || !strings.Contains(strings.ToLower(m.Content), strings.ToLower(q.Text))):
		return false
	}
	return true
}

func (ms messageStore) filter(q chatModels.MessageQuery) []chatModels.Message {
	var out []chatModels.Message
	for _, m := range ms.s.messages {
		if matchMessage(m, q) {
			out = append(out, cloneMessage(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return ms.s.newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func (ms messageStore) List(_ context.Context, q chatModels.MessageQuery) ([]chatModels.Message, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	return page(ms.filter(q), q.Skip, q.Limit), nil
}

func (ms messageStore) Count(_ context.Context, q chatModels.MessageQuery) (int64, error) {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	return int64(len(ms.filter(q))), nil
}

func (ms messageStore) HideFor(_ context.Context, id primitive.ObjectID, userID int64) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m, ok := ms.s.messages[id]
	if !ok {
		return storage.ErrNotFound
	}
	if !m.HiddenFor(userID) {
		m = cloneMessage(m)
		m.DeletedFor = append(m.DeletedFor, userID)
		ms.s.messages[id] = m
	}
	return nil
}

func (ms messageStore) HideAllFor(_ context.Context, chatID primitive.ObjectID, userID int64) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	for id, m := range ms.s.messages {
		if m.ChatID == chatID && !m.HiddenFor(userID) {
			m = cloneMessage(m)
			m.DeletedFor = append(m.DeletedFor, userID)
			ms.s.messages[id] = m
		}
	}
	return nil
}

func (ms messageStore) DeleteForAll(_ context.Context, id primitive.ObjectID) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	m, ok := ms.s.messages[id]
	if !ok {
		return storage.ErrNotFound
	}
	m.DeletedForAll = true
	m.Content = ""
	m.Attachments = []chatModels.Attachment{}
	m.Links = nil
	ms.s.messages[id] = m
	return nil
}
