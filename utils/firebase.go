package utils

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"garagehub/config"
)

// NewFCMClient initializes the Firebase app and returns its Messaging
// client. The caller owns the client and injects it into the notification
// gateway.
func NewFCMClient(ctx context.Context, cfg config.Config) (*messaging.Client, error) {
	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsFile)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}
	return client, nil
}
