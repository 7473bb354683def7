package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/osvquery/vulncontext-mcp/internal/risk"
	"github.com/osvquery/vulncontext-mcp/internal/search"
	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery      = -32001 // Query parameter is empty
	ErrorCodeInvalidID       = -32002 // Identifier does not match the accepted grammar
	ErrorCodeIngestPathError = -32003 // Ingest path missing or unreadable
)

// handleSearchVulnerabilities handles the search_vulnerabilities tool invocation
func (s *Server) handleSearchVulnerabilities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.cfg.Search.DefaultLimit)
	if limit < 1 || limit > search.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	ecosystems := getStringSlice(args, "ecosystems")

	resp, err := s.engine.Search(ctx, search.Request{
		Query:        query,
		Ecosystems:   ecosystems,
		Limit:        limit,
		VectorWeight: s.cfg.Search.VectorWeight,
		BM25Weight:   s.cfg.Search.BM25Weight,
		UseCache:     true,
		CacheTTL:     s.cfg.Search.CacheTTL,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"id":               r.Record.ID,
			"summary":          r.Record.Summary,
			"ecosystem":        r.Record.Ecosystem,
			"aliases":          r.Record.Aliases,
			"similarity_score": r.SimilarityScore,
			"bm25_score":       r.BM25Score,
			"combined_score":   r.CombinedScore,
		})
	}

	response := map[string]interface{}{
		"results":            results,
		"total_found":        resp.TotalFound,
		"degraded":           resp.Degraded,
		"search_method":      string(resp.Method),
		"extracted_entities": resp.ExtractedEntities,
		"timestamp":          resp.Timestamp.Format(time.RFC3339),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetVulnerabilityByID handles the get_vulnerability_by_id tool invocation
func (s *Server) handleGetVulnerabilityByID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}

	rec, err := s.lookup.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrInvalidIdentifier) {
			return nil, newMCPError(ErrorCodeInvalidID, "identifier does not match the accepted format", map[string]interface{}{
				"param": "id",
				"value": id,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if rec == nil {
		response := map[string]interface{}{
			"found": false,
			"id":    id,
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response := map[string]interface{}{
		"found":         true,
		"vulnerability": rec,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handlePrioritizeVulnerabilities handles the prioritize_vulnerabilities tool invocation
func (s *Server) handlePrioritizeVulnerabilities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	ids := getStringSlice(args, "ids")
	if len(ids) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "ids parameter is required", map[string]interface{}{
			"param":  "ids",
			"reason": "missing or empty",
		})
	}

	assetContext := parseAssetContext(args["asset_context"])

	var records []types.VulnerabilityRecord
	var missing []string
	for _, id := range ids {
		rec, err := s.lookup.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, types.ErrInvalidIdentifier) {
				return nil, newMCPError(ErrorCodeInvalidID, "identifier does not match the accepted format", map[string]interface{}{
					"param": "ids",
					"value": id,
				})
			}
			return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if rec == nil {
			missing = append(missing, id)
			continue
		}
		records = append(records, *rec)
	}

	scored := s.scorer.Prioritize(records, assetContext)
	summary := risk.Summarize(scored)

	ranked := make([]map[string]interface{}, 0, len(scored))
	for _, sv := range scored {
		ranked = append(ranked, map[string]interface{}{
			"id":            sv.Record.ID,
			"summary":       sv.Record.Summary,
			"ecosystem":     sv.Record.Ecosystem,
			"overall_score": sv.Score.OverallScore,
			"risk_level":    string(sv.Score.RiskLevel),
			"confidence":    sv.Score.Confidence,
		})
	}

	response := map[string]interface{}{
		"ranked":  ranked,
		"summary": summary,
	}
	if len(missing) > 0 {
		response["not_found"] = missing
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestOSVData handles the ingest_osv_data tool invocation
func (s *Server) handleIngestOSVData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validateIngestPath(path); err != nil {
		return nil, newMCPError(ErrorCodeIngestPathError, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	ecosystem := getStringDefault(args, "ecosystem", "")

	stats, err := s.pipeline.IngestDirectory(ctx, path, ecosystem)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"loaded":      stats.Loaded,
		"skipped":     stats.Skipped,
		"upserted":    stats.Upserted,
		"failed":      stats.Failed,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		response["errors"] = stats.ErrorMessages
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.store.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"records":          status.Records,
			"embeddings":       status.Embeddings,
			"ecosystem_counts": status.EcosystemCounts,
		},
		"health": map[string]interface{}{
			"database_accessible": status.DatabaseAccessible,
			"keyword_index_built": status.KeywordIndexBuilt,
			"vector_index_ready":  status.VectorIndexReady,
		},
	}
	if !status.LastUpdatedAt.IsZero() {
		response["last_updated_at"] = status.LastUpdatedAt.Format(time.RFC3339)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateIngestPath checks that a path is an absolute, readable directory
func validateIngestPath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

// parseAssetContext decodes the optional per-id asset context argument.
func parseAssetContext(raw interface{}) map[string]*risk.AssetInfo {
	m, ok := raw.(map[string]interface{})
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]*risk.AssetInfo, len(m))
	for id, v := range m {
		entry, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		info := &risk.AssetInfo{}
		if c, ok := entry["criticality"].(float64); ok {
			info.Criticality = c
		}
		if e, ok := entry["internet_exposed"].(bool); ok {
			info.InternetExposed = e
		}
		out[types.NormalizeVulnID(id)] = info
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
