// utils/firebase.go
package utils

import (
	"context"
	"fmt"

	"nudge/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FirebaseInit initializes the Firebase App and returns its Messaging client.
func FirebaseInit(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	sa, err := config.ReadServiceAccount(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("firebase: %w", err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}

	zap.L().Info("Firebase messaging connected",
		zap.String("project", sa.ProjectID),
		zap.String("account", sa.ClientEmail))
	return client, nil
}
