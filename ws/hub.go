package ws

// Hub bertanggung jawab untuk:
// menyimpan koneksi client per user, mengirim event ke user tertentu,
// dan broadcast ke semua client. Semua state hanya disentuh goroutine Run.

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const sendBuffer = 256

// Client mewakili satu koneksi WebSocket milik satu user.
type Client struct {
	UserID int64
	Conn   *websocket.Conn
	Send   chan []byte
}

func NewClient(userID int64, conn *websocket.Conn) *Client {
	return &Client{UserID: userID, Conn: conn, Send: make(chan []byte, sendBuffer)}
}

type delivery struct {
	userIDs []int64
	payload []byte
}

type onlineQuery struct {
	userID int64
	reply  chan bool
}

// Hub mengelola semua koneksi client.
type Hub struct {
	clients map[int64]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client
	broadcast  chan []byte
	deliver    chan delivery
	online     chan onlineQuery

	done     chan struct{}
	stopOnce sync.Once
	log      zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		deliver:    make(chan delivery),
		online:     make(chan onlineQuery),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws_hub").Logger(),
	}
}

// Run memproses register, unregister dan pengiriman sampai ctx selesai.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
			}
			h.clients = make(map[int64]map[*Client]bool)
			return
		case client := <-h.Register:
			set, ok := h.clients[client.UserID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.UserID] = set
			}
			set[client] = true
			h.log.Debug().Int64("user_id", client.UserID).Int("connections", len(set)).Msg("client registered")
		case client := <-h.Unregister:
			h.remove(client)
		case message := <-h.broadcast:
			for _, set := range h.clients {
				for client := range set {
					h.push(client, message)
				}
			}
		case d := <-h.deliver:
			for _, userID := range d.userIDs {
				for client := range h.clients[userID] {
					h.push(client, d.payload)
				}
			}
		case q := <-h.online:
			q.reply <- len(h.clients[q.userID]) > 0
		}
	}
}

// push mengirim tanpa blocking; client yang buffernya penuh diputus.
func (h *Hub) push(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.log.Warn().Int64("user_id", client.UserID).Msg("send buffer full, dropping client")
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	h.log.Debug().Int64("user_id", client.UserID).Msg("client unregistered")
}

// OutgoingEvent adalah bentuk pesan server -> client.
type OutgoingEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SendToUsers mengirim event ke semua koneksi milik userIDs.
func (h *Hub) SendToUsers(userIDs []int64, eventType string, data interface{}) error {
	payload, err := json.Marshal(OutgoingEvent{Type: eventType, Data: data})
	if err != nil {
		return err
	}
	select {
	case h.deliver <- delivery{userIDs: userIDs, payload: payload}:
	case <-h.done:
	}
	return nil
}

// EventServerShutdown dikirim ke semua client sebelum server berhenti.
const EventServerShutdown = "server_shutdown"

// BroadcastEvent mengirim event ke semua koneksi aktif. Setelah hub berhenti
// event dibuang tanpa blocking.
func (h *Hub) BroadcastEvent(eventType string, data interface{}) error {
	payload, err := json.Marshal(OutgoingEvent{Type: eventType, Data: data})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
	return nil
}

// IsOnline melaporkan apakah user punya minimal satu koneksi aktif.
func (h *Hub) IsOnline(userID int64) bool {
	q := onlineQuery{userID: userID, reply: make(chan bool, 1)}
	select {
	case h.online <- q:
		return <-q.reply
	case <-h.done:
		return false
	}
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Publisher adalah bagian hub yang dipakai service untuk event real-time.
type Publisher interface {
	SendToUsers(userIDs []int64, eventType string, data interface{}) error
	IsOnline(userID int64) bool
}

var _ Publisher = (*Hub)(nil)
