package toml

import (
	"fmt"

	"github.com/bnema/atp-accounts-cli/internal/domain"
)

const currentSchemaVersion = 1

// Account entries are decoded as raw maps so fields written by a newer
// build survive a round trip through this one.
type fileSchema struct {
	Version  int              `toml:"version"`
	Current  string           `toml:"current,omitempty"`
	Accounts []map[string]any `toml:"accounts,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

var knownAccountKeys = map[string]struct{}{
	"service":         {},
	"did":             {},
	"handle":          {},
	"email":           {},
	"email_confirmed": {},
	"deactivated":     {},
	"access_token":    {},
	"refresh_token":   {},
}

func toEntry(account domain.Account) map[string]any {
	entry := make(map[string]any, len(account.Extra)+8)
	for key, value := range account.Extra {
		entry[key] = value
	}

	entry["service"] = account.Service
	entry["did"] = string(account.DID)
	entry["handle"] = account.Handle
	if account.Email != "" {
		entry["email"] = account.Email
	}
	if account.EmailConfirmed {
		entry["email_confirmed"] = true
	}
	if account.Deactivated {
		entry["deactivated"] = true
	}
	if account.AccessToken != "" {
		entry["access_token"] = account.AccessToken
	}
	if account.RefreshToken != "" {
		entry["refresh_token"] = account.RefreshToken
	}

	return entry
}

func fromEntry(entry map[string]any) domain.Account {
	account := domain.Account{
		Service:        stringValue(entry, "service"),
		DID:            domain.DID(stringValue(entry, "did")),
		Handle:         stringValue(entry, "handle"),
		Email:          stringValue(entry, "email"),
		EmailConfirmed: boolValue(entry, "email_confirmed"),
		Deactivated:    boolValue(entry, "deactivated"),
		AccessToken:    stringValue(entry, "access_token"),
		RefreshToken:   stringValue(entry, "refresh_token"),
	}

	for key, value := range entry {
		if _, known := knownAccountKeys[key]; known {
			continue
		}
		if account.Extra == nil {
			account.Extra = map[string]any{}
		}
		account.Extra[key] = value
	}

	return account
}

func stringValue(entry map[string]any, key string) string {
	if value, ok := entry[key].(string); ok {
		return value
	}
	return ""
}

func boolValue(entry map[string]any, key string) bool {
	if value, ok := entry[key].(bool); ok {
		return value
	}
	return false
}
