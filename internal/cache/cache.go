// Package cache defines the durable page cache shared by every list
// context. Each namespace maps composite string keys (filter/sort/page
// combinations) to the JSON page last fetched for that key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMiss is returned when a namespace/key pair has no usable entry.
// A corrupt stored payload is reported as a miss, never as a failure.
var ErrMiss = errors.New("cache miss")

type Store interface {
	// Get returns the page stored for (namespace, key), or ErrMiss.
	Get(ctx context.Context, namespace, key string) (json.RawMessage, error)
	// Put inserts or overwrites one key's page. The cache is best-effort:
	// callers log and swallow Put failures.
	Put(ctx context.Context, namespace, key string, page json.RawMessage) error
	// InvalidateAll discards every key in a namespace. Used after any
	// mutation to the corresponding list so the next load re-fetches.
	InvalidateAll(ctx context.Context, namespace string) error
	Close() error
}

// Namespace names follow the layout the web client persisted to local
// storage, one namespace per list context.

func BountyNamespace() string { return "bounty_post_cache" }

func DraftNamespace() string { return "bounty_draft_cache" }

func CommentsNamespace(postID string) string {
	return fmt.Sprintf("comments_%s", postID)
}

func MySolutionsNamespace(postID string) string {
	if postID == "" {
		postID = "list"
	}
	return fmt.Sprintf("my_solutions_%s", postID)
}

func UserSolutionsNamespace(postID string) string {
	if postID == "" {
		postID = "list"
	}
	return fmt.Sprintf("user_solutions_%s", postID)
}
