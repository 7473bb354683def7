package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// fakeRecordStore resolves lookups from in-memory maps.
type fakeRecordStore struct {
	byAlias map[string]*types.VulnerabilityRecord
	byID    map[string]*types.VulnerabilityRecord
}

func (f *fakeRecordStore) GetByAlias(ctx context.Context, alias string) (*types.VulnerabilityRecord, error) {
	if rec, ok := f.byAlias[alias]; ok {
		return rec, nil
	}
	return nil, types.ErrNotFound
}

func (f *fakeRecordStore) GetByID(ctx context.Context, id string) (*types.VulnerabilityRecord, error) {
	if rec, ok := f.byID[id]; ok {
		return rec, nil
	}
	return nil, types.ErrNotFound
}

func TestLookupResolvesAliasFirst(t *testing.T) {
	ghsa := &types.VulnerabilityRecord{ID: "GHSA-jfh8-c2jp-5v3q", Aliases: []string{"CVE-2021-44228"}}
	store := &fakeRecordStore{
		byAlias: map[string]*types.VulnerabilityRecord{"CVE-2021-44228": ghsa},
		byID:    map[string]*types.VulnerabilityRecord{"GHSA-jfh8-c2jp-5v3q": ghsa},
	}

	lookup := NewLookup(store)
	rec, err := lookup.GetByID(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "GHSA-jfh8-c2jp-5v3q", rec.ID)
	assert.True(t, rec.HasAlias("CVE-2021-44228"))
}

func TestLookupFallsBackToUppercasedID(t *testing.T) {
	cve := &types.VulnerabilityRecord{ID: "CVE-2024-3094"}
	store := &fakeRecordStore{
		byAlias: map[string]*types.VulnerabilityRecord{},
		byID:    map[string]*types.VulnerabilityRecord{"CVE-2024-3094": cve},
	}

	lookup := NewLookup(store)
	rec, err := lookup.GetByID(context.Background(), "cve-2024-3094")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "CVE-2024-3094", rec.ID)
}

func TestLookupMissingReturnsNilNotError(t *testing.T) {
	lookup := NewLookup(&fakeRecordStore{})
	rec, err := lookup.GetByID(context.Background(), "CVE-2024-99999")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestLookupRejectsMalformedIdentifier(t *testing.T) {
	lookup := NewLookup(&fakeRecordStore{})
	rec, err := lookup.GetByID(context.Background(), "not-an-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidIdentifier))
	assert.Nil(t, rec)
}
