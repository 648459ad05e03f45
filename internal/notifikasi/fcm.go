package notifikasi

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/c14220110/telekonsul-backend/pkg/storage"
)

// multicastLimit adalah batas token per panggilan SendEachForMulticast.
const multicastLimit = 500

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMNotifier struct {
	client multicastSender
	tokens storage.DeviceTokenStore
	log    zerolog.Logger
}

// NewFCMNotifier menginisialisasi Firebase app. Tanpa credentialsPath
// dipakai application default credentials.
func NewFCMNotifier(ctx context.Context, credentialsPath string, tokens storage.DeviceTokenStore, log zerolog.Logger) (*FCMNotifier, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	log.Info().Msg("Firebase messaging client initialized")
	return &FCMNotifier{client: client, tokens: tokens, log: log}, nil
}

func (n *FCMNotifier) Notify(ctx context.Context, userIDs []int64, msg Message) error {
	tokens, err := n.tokens.TokensFor(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	var stale []string
	for start := 0; start < len(tokens); start += multicastLimit {
		end := start + multicastLimit
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]
		resp, err := n.client.SendEachForMulticast(ctx, buildMulticast(batch, msg))
		if err != nil {
			return fmt.Errorf("send multicast: %w", err)
		}
		for i, r := range resp.Responses {
			if r.Success || r.Error == nil {
				continue
			}
			if messaging.IsUnregistered(r.Error) {
				stale = append(stale, batch[i])
				continue
			}
			n.log.Warn().Err(r.Error).Msg("push delivery failed")
		}
	}

	if len(stale) > 0 {
		if err := n.tokens.DeleteTokens(ctx, stale); err != nil {
			return fmt.Errorf("prune device tokens: %w", err)
		}
		n.log.Info().Int("count", len(stale)).Msg("pruned unregistered device tokens")
	}
	return nil
}

func buildMulticast(tokens []string, msg Message) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:    "default",
				Priority: messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: msg.Title, Body: msg.Body},
					Sound: "default",
				},
			},
		},
	}
}
