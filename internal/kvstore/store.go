// Package kvstore persists small string values under string keys.
//
// It plays the role a browser's local storage plays for a web storefront:
// the last active view, the signed-in session snapshot, offline seeds of
// the catalog, listings and sets, and local storefront edits. Values are opaque strings; callers own the
// encoding (GetJSON and SetJSON cover the common case).
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Well-known keys.
const (
	KeyLastView    = "lastView"
	KeyCatalog     = "catalogCards"
	KeyListings    = "marketplaceListings"
	KeySets        = "availableSets"
	KeyCurrentUser = "currentUser"
	KeyTheme       = "theme"
	KeyLocalEdits  = "localEdits"
)

// CollectionKey returns the key holding the cached collection of userID.
func CollectionKey(userID string) string {
	return "collection_" + userID
}

// Store is a synchronous key/value store. A Set is visible to every
// subsequent Get on the same Store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// GetJSON decodes the value stored under key into a T. The bool reports
// whether the key was present.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var out T
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, true, nil
}

// SetJSON encodes value as JSON and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}
