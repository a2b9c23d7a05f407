// Package appctx carries process-wide dependencies on a context.Context.
package appctx

import (
	"context"

	"github.com/vulntor/scribe/pkg/config"
	"github.com/vulntor/scribe/pkg/transcribe"
)

type key string

const configKey key = "scribe.config.manager"

// WithConfig stores the shared config manager on context.
func WithConfig(ctx context.Context, manager *config.Manager) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, configKey, manager)
}

// Config retrieves the shared config manager from context.
func Config(ctx context.Context) (*config.Manager, bool) {
	if ctx == nil {
		return nil, false
	}
	mgr, ok := ctx.Value(configKey).(*config.Manager)
	return mgr, ok && mgr != nil
}

const clientKey key = "scribe.transcribe.client"

// WithClient stores the shared transcription client on context.
func WithClient(ctx context.Context, client *transcribe.Client) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientKey, client)
}

// Client retrieves the shared transcription client from context.
func Client(ctx context.Context) (*transcribe.Client, bool) {
	if ctx == nil {
		return nil, false
	}
	client, ok := ctx.Value(clientKey).(*transcribe.Client)
	return client, ok && client != nil
}
