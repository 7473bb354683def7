package search

import (
	"context"
	"errors"

	"github.com/osvquery/vulncontext-mcp/internal/storage"
	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// Lookup resolves vulnerability identifiers against the record store.
type Lookup struct {
	store storage.RecordStore
}

// NewLookup creates an identifier lookup over the given store.
func NewLookup(store storage.RecordStore) *Lookup {
	return &Lookup{store: store}
}

// GetByID resolves an identifier to its record. Aliases are checked
// first with the input verbatim, then the canonical id upper-cased.
// A syntactically valid identifier with no match returns (nil, nil);
// a malformed one returns types.ErrInvalidIdentifier before any I/O.
func (l *Lookup) GetByID(ctx context.Context, id string) (*types.VulnerabilityRecord, error) {
	if err := types.ValidateVulnID(id); err != nil {
		return nil, err
	}

	rec, err := l.store.GetByAlias(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	rec, err = l.store.GetByID(ctx, types.NormalizeVulnID(id))
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}
