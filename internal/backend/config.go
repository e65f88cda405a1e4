package backend

import (
	"errors"
	"fmt"

	"ffsync/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	t := Type(appConfig.SheetBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.SheetBackend)
	}

	return Config{
		Type: t,

		ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		ServiceAccountFile: appConfig.GoogleServiceAccountFile,
		OAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
		OAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,

		XLSXDir:      appConfig.XLSXDir,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedDir:      appConfig.MemorySeedDir,
	}, nil
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SheetsBackend:
		if c.ServiceAccountJSON == "" && c.ServiceAccountFile == "" {
			if c.OAuthClientJSON == "" {
				return errors.New("a service account or OAuth client is required for sheets backend")
			}
			if c.OAuthTokenJSON == "" {
				return errors.New("an OAuth token is required with an OAuth client for sheets backend")
			}
		}
	case XLSXBackend:
		if c.XLSXDir == "" {
			return errors.New("XLSX directory is required for xlsx backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// A missing seed directory yields an empty store.
	}
	return nil
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{SheetsBackend, XLSXBackend, SQLiteBackend, MemoryBackend}
}
