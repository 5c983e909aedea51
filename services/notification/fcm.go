package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// FCMGateway sends pushes through Firebase Cloud Messaging.
type FCMGateway struct {
	Client *messaging.Client
}

func NewFCMGateway(client *messaging.Client) (*FCMGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("fcm gateway initialization error: messaging client is nil")
	}
	return &FCMGateway{Client: client}, nil
}

func (g *FCMGateway) SendOne(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "appointments",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := g.Client.Send(ctx, msg); err != nil {
		return &DeliveryError{
			Token:        token,
			Reason:       err.Error(),
			Unregistered: messaging.IsUnregistered(err),
		}
	}
	return nil
}

func (g *FCMGateway) SendMany(ctx context.Context, tokens []string, title, body string, data map[string]string) (*BatchResult, error) {
	if len(tokens) == 0 {
		return &BatchResult{}, nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	resp, err := g.Client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("multicast send failed: %w", err)
	}

	result := &BatchResult{SuccessCount: resp.SuccessCount}
	for i, r := range resp.Responses {
		if r.Success {
			continue
		}
		result.Failures = append(result.Failures, DeliveryFailure{
			Token:        tokens[i],
			Reason:       r.Error.Error(),
			Unregistered: messaging.IsUnregistered(r.Error),
		})
	}
	return result, nil
}
