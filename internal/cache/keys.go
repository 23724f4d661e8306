// ABOUTME: Cache key naming for sessions and per-account record lists
// ABOUTME: All application keys share one prefix so they can be counted and wiped together

package cache

import "strings"

// DefaultPrefix is the namespace used when none is configured.
const DefaultPrefix = "retinal-ai"

// Keys derives cache keys from a namespace prefix.
type Keys struct {
	Prefix string
}

// NewKeys returns Keys for prefix, falling back to DefaultPrefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{Prefix: prefix}
}

// Owned is the prefix shared by every application key.
func (k Keys) Owned() string { return k.Prefix + ":" }

func (k Keys) Session() string { return k.Prefix + ":session" }

func (k Keys) Records(accountID string) string { return k.recordsPrefix() + accountID }

// LegacyRecords is the pre-isolation key holding records of unknown ownership.
func (k Keys) LegacyRecords() string { return k.Prefix + ":records" }

// AccountID extracts the account id from a per-account records key.
func (k Keys) AccountID(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, k.recordsPrefix())
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// KeyType classifies an owned key as "session" or "records".
func (k Keys) KeyType(key string) string {
	if key == k.Session() {
		return "session"
	}
	return "records"
}

func (k Keys) recordsPrefix() string { return k.Prefix + ":records:" }
