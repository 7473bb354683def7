package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateVulnID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "CVE", id: "CVE-2024-3094", wantErr: false},
		{name: "CVELongSuffix", id: "CVE-2021-44228", wantErr: false},
		{name: "GHSA", id: "GHSA-jfh8-c2jp-5v3q", wantErr: false},
		{name: "DebianAdvisory", id: "DSA-2024-5678", wantErr: false},
		{name: "LowercasePrefix", id: "cve-2024-3094", wantErr: false},
		{name: "SurroundingWhitespace", id: "  CVE-2024-3094  ", wantErr: false},
		{name: "Empty", id: "", wantErr: true},
		{name: "FreeText", id: "not-an-id", wantErr: true},
		{name: "MissingYear", id: "CVE-3094", wantErr: true},
		{name: "ShortGroup", id: "GHSA-jfh8-c2jp", wantErr: true},
		{name: "TrailingGarbage", id: "CVE-2024-3094; DROP TABLE", wantErr: true},
		{name: "NumberOnly", id: "2024-3094", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVulnID(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got nil", tt.id)
				}
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Errorf("expected ErrInvalidIdentifier, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.id, err)
			}
		})
	}
}

func TestNormalizeVulnID(t *testing.T) {
	if got := NormalizeVulnID(" cve-2024-3094 "); got != "CVE-2024-3094" {
		t.Errorf("expected CVE-2024-3094, got %q", got)
	}
}

func TestIsTransientIndexError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "Nil", err: nil, want: false},
		{name: "Sentinel", err: ErrIndexQueryFailed, want: true},
		{name: "WrappedSentinel", err: fmt.Errorf("search: %w", ErrIndexQueryFailed), want: true},
		{name: "OutputTooSmall", err: errors.New("rpc error: OutputTooSmall"), want: true},
		{name: "ServerError", err: errors.New("unexpected status 500"), want: true},
		{name: "ChannelClosed", err: errors.New("grpc channel closed"), want: true},
		{name: "CorruptSegment", err: errors.New("segment corrupted on disk"), want: true},
		{name: "DimensionMismatch", err: errors.New("vector dimension error 768 != 1536"), want: true},
		{name: "LockedDatabase", err: errors.New("database is locked"), want: true},
		{name: "PermissionDenied", err: errors.New("permission denied"), want: false},
		{name: "NotFound", err: ErrNotFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientIndexError(tt.err); got != tt.want {
				t.Errorf("IsTransientIndexError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRecordHelpers(t *testing.T) {
	rec := VulnerabilityRecord{
		ID:      "GHSA-jfh8-c2jp-5v3q",
		Aliases: []string{"CVE-2021-44228"},
		Affected: []AffectedPackage{
			{Package: Package{Name: "log4j-core", Ecosystem: "Maven"}},
			{Package: Package{Name: "", Ecosystem: "Maven"}},
		},
	}

	if !rec.HasAlias("CVE-2021-44228") {
		t.Error("expected alias match")
	}
	if rec.HasAlias("CVE-2021-00000") {
		t.Error("unexpected alias match")
	}

	names := rec.PackageNames()
	if len(names) != 1 || names[0] != "log4j-core" {
		t.Errorf("expected [log4j-core], got %v", names)
	}
}
