package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/c14220110/telekonsul-backend/ws"
)

var _ ws.EventHandler = (*ChatService)(nil)

type chatRef struct {
	ChatID string `json:"chatId"`
}

// HandleEvent memproses event websocket send_message, typing, dan read.
func (s *ChatService) HandleEvent(ctx context.Context, userID int64, ev ws.Event) error {
	switch ev.Type {
	case "send_message":
		var in SendInput
		if err := json.Unmarshal(ev.Data, &in); err != nil {
			return errors.New("invalid send_message payload")
		}
		_, err := s.SendMessage(ctx, userID, in)
		return err
	case EventTyping:
		var ref chatRef
		if err := json.Unmarshal(ev.Data, &ref); err != nil {
			return errors.New("invalid typing payload")
		}
		chat, err := s.participantChat(ctx, userID, ref.ChatID)
		if err != nil {
			return err
		}
		if other, ok := chat.OtherParticipant(userID); ok {
			s.publish([]int64{other}, EventTyping, map[string]interface{}{"chatId": chat.ID.Hex(), "userId": userID})
		}
		return nil
	case "read":
		var ref chatRef
		if err := json.Unmarshal(ev.Data, &ref); err != nil {
			return errors.New("invalid read payload")
		}
		_, err := s.MarkOpened(ctx, userID, ref.ChatID)
		return err
	default:
		return errors.New("unknown event type: " + ev.Type)
	}
}
