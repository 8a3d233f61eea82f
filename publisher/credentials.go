package publisher

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"grimoire_editor_agent/config"
)

// Scopes requested for the service account: write the manuscript, read the
// story bible and document metadata.
var Scopes = []string{
	docs.DocumentsScope,
	sheets.SpreadsheetsReadonlyScope,
	drive.DriveReadonlyScope,
}

// ClientOptions resolves credentials from inline JSON, then a key file, then
// Application Default Credentials. Inline and file credentials must be a
// service account key.
func ClientOptions(ctx context.Context, cfg config.GoogleConfig) ([]option.ClientOption, error) {
	data := []byte(cfg.CredentialsJSON)
	if len(data) == 0 && cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read google credentials: %w", err)
		}
		data = b
	}

	if len(data) > 0 {
		creds, err := google.CredentialsFromJSONWithType(ctx, data, google.ServiceAccount, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		return []option.ClientOption{option.WithCredentials(creds)}, nil
	}

	creds, err := google.FindDefaultCredentials(ctx, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("find default google credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}
