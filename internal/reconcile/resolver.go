package reconcile

import (
	"context"
	"strconv"
)

// FolderRegistry is the read-only lookup surface the resolver consumes.
// Every method reports a miss as found=false; an error means the lookup
// itself failed and the caller should retry on a later pass.
type FolderRegistry interface {
	FolderNameByID(ctx context.Context, id int64) (string, bool, error)
	FolderNameByAlias(ctx context.Context, alias string) (string, bool, error)
	FolderNameContaining(ctx context.Context, token string) (string, bool, error)
	FolderNameByDocumentTitle(ctx context.Context, title string) (string, bool, error)
}

// Resolver maps a filename folder token to a canonical folder name using
// an ordered fallback chain over the registry.
type Resolver struct {
	registry FolderRegistry
}

func NewResolver(registry FolderRegistry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve tries, in order: numeric id, alias columns, case-insensitive
// substring of the folder name, and finally the legacy document-title
// lookup. The first hit wins; a full miss reports found=false.
func (r *Resolver) Resolve(ctx context.Context, token string) (string, bool, error) {
	if id, err := strconv.ParseInt(token, 10, 64); err == nil {
		name, found, err := r.registry.FolderNameByID(ctx, id)
		if err != nil || found {
			return name, found, err
		}
	}

	name, found, err := r.registry.FolderNameByAlias(ctx, token)
	if err != nil || found {
		return name, found, err
	}

	name, found, err = r.registry.FolderNameContaining(ctx, token)
	if err != nil || found {
		return name, found, err
	}

	return r.registry.FolderNameByDocumentTitle(ctx, token)
}
