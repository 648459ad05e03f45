// Package memstore menyediakan implementasi in-memory dari kontrak
// pkg/storage untuk unit test service dan controller.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	chatModels "github.com/c14220110/telekonsul-backend/internal/chat/models"
	dokterModels "github.com/c14220110/telekonsul-backend/internal/dokter/models"
	konsultasiModels "github.com/c14220110/telekonsul-backend/internal/konsultasi/models"
	penggunaModels "github.com/c14220110/telekonsul-backend/internal/pengguna/models"
	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

// Store menyimpan semua data di map yang dijaga satu mutex.
type Store struct {
	mu  sync.Mutex
	seq int64

	users        map[int64]penggunaModels.User
	doctors      map[int64]dokterModels.Doctor
	ratings      []penggunaModels.Rating
	deviceTokens map[string]penggunaModels.DeviceToken

	consultations map[primitive.ObjectID]konsultasiModels.ConsultationRequest
	chats         map[primitive.ObjectID]chatModels.Chat
	messages      map[primitive.ObjectID]chatModels.Message
	order         map[primitive.ObjectID]int64
}

func New() *Store {
	return &Store{
		users:         make(map[int64]penggunaModels.User),
		doctors:       make(map[int64]dokterModels.Doctor),
		deviceTokens:  make(map[string]penggunaModels.DeviceToken),
		consultations: make(map[primitive.ObjectID]konsultasiModels.ConsultationRequest),
		chats:         make(map[primitive.ObjectID]chatModels.Chat),
		messages:      make(map[primitive.ObjectID]chatModels.Message),
		order:         make(map[primitive.ObjectID]int64),
	}
}

func (s *Store) Users() storage.UserStore                 { return userStore{s} }
func (s *Store) Doctors() storage.DoctorStore             { return doctorStore{s} }
func (s *Store) Ratings() storage.RatingStore             { return ratingStore{s} }
func (s *Store) DeviceTokens() storage.DeviceTokenStore   { return deviceTokenStore{s} }
func (s *Store) Consultations() storage.ConsultationStore { return consultationStore{s} }
func (s *Store) Chats() storage.ChatStore                 { return chatStore{s} }
func (s *Store) Messages() storage.MessageStore           { return messageStore{s} }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) newObjectID() primitive.ObjectID {
	id := primitive.NewObjectID()
	s.order[id] = s.next()
	return id
}

// newer mengurutkan berdasarkan waktu lalu urutan insert, keduanya menurun.
func (s *Store) newer(ta, tb time.Time, a, b primitive.ObjectID) bool {
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return s.order[a] > s.order[b]
}

func page[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsInt(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

// --- users ---

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *penggunaModels.User) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if existing.Email == email {
			return storage.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	user.ID = s.next()
	user.Email = email
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	return nil
}

func (u userStore) FindByID(_ context.Context, id int64) (*penggunaModels.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &user, nil
}

func (u userStore) FindByEmail(_ context.Context, email string) (*penggunaModels.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	email = strings.ToLower(email)
	for _, user := range u.s.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (u userStore) FindByIDs(_ context.Context, ids []int64) (map[int64]penggunaModels.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	out := make(map[int64]penggunaModels.User, len(ids))
	for _, id := range ids {
		if user, ok := u.s.users[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

func (u userStore) Update(_ context.Context, user *penggunaModels.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	existing, ok := u.s.users[user.ID]
	if !ok {
		return storage.ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	user.Email, user.Password, user.Role, user.CreatedAt = existing.Email, existing.Password, existing.Role, existing.CreatedAt
	u.s.users[user.ID] = *user
	return nil
}

// Delete meniru ON DELETE CASCADE untuk doctors dan device_tokens.
func (u userStore) Delete(_ context.Context, id int64) error {
	s := u.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	for docID, d := range s.doctors {
		if d.UserID == id {
			delete(s.doctors, docID)
		}
	}
	for token, t := range s.deviceTokens {
		if t.UserID == id {
			delete(s.deviceTokens, token)
		}
	}
	return nil
}

// --- doctors ---

type doctorStore struct{ s *Store }

func (d doctorStore) FindByUserID(_ context.Context, userID int64) (*dokterModels.Doctor, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, doc := range d.s.doctors {
		if doc.UserID == userID {
			found := cloneDoctor(doc)
			return &found, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (d doctorStore) FindByID(_ context.Context, id int64) (*dokterModels.Doctor, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	doc, ok := d.s.doctors[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	found := cloneDoctor(doc)
	return &found, nil
}

func (d doctorStore) Save(_ context.Context, doc *dokterModels.Doctor) error {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	doc.UpdatedAt = now
	for id, existing := range s.doctors {
		if existing.UserID == doc.UserID {
			doc.ID, doc.CreatedAt, doc.VerifiedByAdmin = id, existing.CreatedAt, existing.VerifiedByAdmin
			s.doctors[id] = cloneDoctor(*doc)
			return nil
		}
	}
	doc.ID = s.next()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	s.doctors[doc.ID] = cloneDoctor(*doc)
	return nil
}

func (d doctorStore) UserIDsBySpecialty(_ context.Context, specialty string) ([]int64, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var ids []int64
	for _, doc := range d.s.doctors {
		if doc.Specialty == specialty {
			ids = append(ids, doc.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func cloneDoctor(d dokterModels.Doctor) dokterModels.Doctor {
	d.DegreeFiles = cloneStrings(d.DegreeFiles)
	d.LicenseFiles = cloneStrings(d.LicenseFiles)
	return d
}

// SetVerified menandai dokter sudah diverifikasi admin.
func (s *Store) SetVerified(doctorID int64, verified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.doctors[doctorID]; ok {
		d.VerifiedByAdmin = verified
		s.doctors[doctorID] = d
	}
}

// --- ratings ---

type ratingStore struct{ s *Store }

func (r ratingStore) Create(_ context.Context, rating *penggunaModels.Rating) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.ratings {
		if existing.ChatID == rating.ChatID && existing.RaterID == rating.RaterID {
			return storage.ErrDuplicate
		}
	}
	rating.ID = s.next()
	rating.CreatedAt = time.Now().UTC()
	s.ratings = append(s.ratings, *rating)
	return nil
}

func (r ratingStore) FindByChatAndRater(_ context.Context, chatID string, raterID int64) (*penggunaModels.Rating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.ratings {
		if existing.ChatID == chatID && existing.RaterID == raterID {
			found := existing
			return &found, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r ratingStore) SummaryFor(_ context.Context, ratedID int64) (penggunaModels.RatingSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var summary penggunaModels.RatingSummary
	total := 0
	for _, existing := range r.s.ratings {
		if existing.RatedID == ratedID {
			summary.Count++
			total += existing.Score
		}
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary, nil
}

// --- device tokens ---

type deviceTokenStore struct{ s *Store }

func (d deviceTokenStore) Save(_ context.Context, t *penggunaModels.DeviceToken) error {
	s := d.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.deviceTokens[t.Token]; ok {
		t.ID = existing.ID
	} else {
		t.ID = s.next()
	}
	t.UpdatedAt = time.Now().UTC()
	s.deviceTokens[t.Token] = *t
	return nil
}

func (d deviceTokenStore) TokensFor(_ context.Context, userIDs []int64) ([]string, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var tokens []string
	for token, t := range d.s.deviceTokens {
		if containsInt(userIDs, t.UserID) {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (d deviceTokenStore) DeleteTokens(_ context.Context, tokens []string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, token := range tokens {
		delete(d.s.deviceTokens, token)
	}
	return nil
}

// Stores mengembalikan semua view store dari Store yang sama.
func (s *Store) Stores() storage.Stores {
	return storage.Stores{
		Users:         s.Users(),
		Doctors:       s.Doctors(),
		Ratings:       s.Ratings(),
		DeviceTokens:  s.DeviceTokens(),
		Consultations: s.Consultations(),
		Chats:         s.Chats(),
		Messages:      s.Messages(),
	}
}
