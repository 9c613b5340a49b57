// Package cloudstore implements the record and budget stores on Cloud
// Firestore, with live queries for subscriptions.
package cloudstore

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// AppConfig identifies the Firebase project shared by the document store and
// the Firebase identity provider.
type AppConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewApp initializes a Firebase app. An empty CredentialsFile falls back to
// application default credentials, which also covers the emulators.
func NewApp(ctx context.Context, cfg AppConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}
