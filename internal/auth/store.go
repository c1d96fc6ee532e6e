// Package auth stores provider API keys outside the project config, in a
// per-user credentials file readable only by its owner.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PathEnvVar overrides the credentials file location.
const PathEnvVar = "GEMCHAT_CREDENTIALS"

// Credentials holds stored API keys by provider name.
type Credentials struct {
	APIKeys map[string]string `json:"api_keys,omitempty"`
}

// APIKey returns the stored key for provider, or "".
func (c *Credentials) APIKey(provider string) string {
	if c == nil || c.APIKeys == nil {
		return ""
	}
	return c.APIKeys[provider]
}

// SetAPIKey stores key for provider. An empty key removes it.
func (c *Credentials) SetAPIKey(provider, key string) {
	if key == "" {
		delete(c.APIKeys, provider)
		return
	}
	if c.APIKeys == nil {
		c.APIKeys = make(map[string]string)
	}
	c.APIKeys[provider] = key
}

// CredentialPath returns the path to the credentials file
// ($GEMCHAT_CREDENTIALS, or ~/.gemchat/credentials.json).
func CredentialPath() (string, error) {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".gemchat", "credentials.json"), nil
}

// Load reads the credentials file.
// Returns empty credentials if the file doesn't exist.
func Load() (*Credentials, error) {
	path, err := CredentialPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	return &creds, nil
}

// Save writes the credentials file with restricted permissions.
func Save(creds *Credentials) error {
	path, err := CredentialPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// GetAPIKey returns the stored API key for provider, or "" when none is
// stored or the file cannot be read.
func GetAPIKey(provider string) string {
	creds, err := Load()
	if err != nil {
		return ""
	}
	return creds.APIKey(provider)
}

// StoreAPIKey saves key for provider, keeping the other stored keys.
func StoreAPIKey(provider, key string) error {
	creds, err := Load()
	if err != nil {
		return err
	}
	creds.SetAPIKey(provider, key)
	return Save(creds)
}
