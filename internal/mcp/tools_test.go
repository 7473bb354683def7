package mcp

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIntDefault(t *testing.T) {
	args := map[string]interface{}{
		"from_json": float64(25),
		"native":    7,
		"wrong":     "ten",
	}

	assert.Equal(t, 25, getIntDefault(args, "from_json", 10), "JSON numbers arrive as float64")
	assert.Equal(t, 7, getIntDefault(args, "native", 10))
	assert.Equal(t, 10, getIntDefault(args, "wrong", 10))
	assert.Equal(t, 10, getIntDefault(args, "absent", 10))
}

func TestGetStringDefault(t *testing.T) {
	args := map[string]interface{}{"ecosystem": "npm", "limit": float64(5)}

	assert.Equal(t, "npm", getStringDefault(args, "ecosystem", ""))
	assert.Equal(t, "fallback", getStringDefault(args, "absent", "fallback"))
	assert.Equal(t, "fallback", getStringDefault(args, "limit", "fallback"))
}

func TestGetStringSlice(t *testing.T) {
	args := map[string]interface{}{
		"ecosystems": []interface{}{"npm", "PyPI", "", 42},
		"scalar":     "npm",
	}

	assert.Equal(t, []string{"npm", "PyPI"}, getStringSlice(args, "ecosystems"),
		"empty and non-string elements are dropped")
	assert.Nil(t, getStringSlice(args, "scalar"))
	assert.Nil(t, getStringSlice(args, "absent"))
}

func TestValidateIngestPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "advisory.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "valid directory", path: dir, wantErr: nil},
		{name: "relative path", path: "advisories", wantErr: ErrPathNotAbsolute},
		{name: "missing path", path: filepath.Join(dir, "absent"), wantErr: ErrPathNotFound},
		{name: "file not directory", path: file, wantErr: ErrNotDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateIngestPath(tt.path)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseAssetContext(t *testing.T) {
	raw := map[string]interface{}{
		"cve-2024-3094": map[string]interface{}{
			"criticality":      float64(3),
			"internet_exposed": true,
		},
		"CVE-2021-44228": map[string]interface{}{
			"criticality": float64(2),
		},
		"CVE-2019-10744": "not an object",
	}

	ctx := parseAssetContext(raw)
	require.Len(t, ctx, 2)

	xz := ctx["CVE-2024-3094"]
	require.NotNil(t, xz, "keys are canonicalized to upper case")
	assert.Equal(t, 3.0, xz.Criticality)
	assert.True(t, xz.InternetExposed)

	log4j := ctx["CVE-2021-44228"]
	require.NotNil(t, log4j)
	assert.Equal(t, 2.0, log4j.Criticality)
	assert.False(t, log4j.InternetExposed)

	assert.Nil(t, parseAssetContext(nil))
	assert.Nil(t, parseAssetContext(map[string]interface{}{}))
	assert.Nil(t, parseAssetContext("scalar"))
}

func TestMCPErrorFormatting(t *testing.T) {
	err := newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", nil)

	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr))
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
	assert.Contains(t, err.Error(), "-32001")
	assert.Contains(t, err.Error(), "query parameter")
}

func TestFormatJSONIndented(t *testing.T) {
	out := formatJSON(map[string]interface{}{"found": false, "id": "CVE-2024-0001"})
	assert.Contains(t, out, "\"found\": false")
	assert.Contains(t, out, "\"id\": \"CVE-2024-0001\"")
}
