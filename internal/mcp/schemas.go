package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchVulnerabilitiesTool returns the tool definition for search_vulnerabilities
func searchVulnerabilitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_vulnerabilities",
		Description: "Search the vulnerability corpus with natural language or keyword queries, optionally filtered by ecosystem",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"ecosystems": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these ecosystems (e.g. npm, PyPI, Maven, Go, Debian)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getVulnerabilityByIDTool returns the tool definition for get_vulnerability_by_id
func getVulnerabilityByIDTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_vulnerability_by_id",
		Description: "Look up a single vulnerability by CVE/GHSA identifier or alias",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Vulnerability identifier (e.g. CVE-2024-3094 or GHSA-jfh8-c2jp-5v3q)",
				},
			},
			Required: []string{"id"},
		},
	}
}

// prioritizeVulnerabilitiesTool returns the tool definition for prioritize_vulnerabilities
func prioritizeVulnerabilitiesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "prioritize_vulnerabilities",
		Description: "Score a set of vulnerabilities by combined risk (CVSS, EPSS, KEV, asset context) and return them ranked with a summary",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"ids": map[string]interface{}{
					"type":        "array",
					"description": "Vulnerability identifiers to score",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"asset_context": map[string]interface{}{
					"type":        "object",
					"description": "Optional per-identifier asset context",
					"additionalProperties": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"criticality": map[string]interface{}{
								"type":        "number",
								"description": "Asset criticality: 1.0 normal, 2.0 high, 3.0 critical",
								"minimum":     1.0,
								"maximum":     3.0,
							},
							"internet_exposed": map[string]interface{}{
								"type":        "boolean",
								"description": "Whether the asset is reachable from the internet",
							},
						},
					},
				},
			},
			Required: []string{"ids"},
		},
	}
}

// ingestOSVDataTool returns the tool definition for ingest_osv_data
func ingestOSVDataTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_osv_data",
		Description: "Ingest OSV JSON advisory documents from a directory into the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a directory of OSV JSON files",
				},
				"ecosystem": map[string]interface{}{
					"type":        "string",
					"description": "Ecosystem tag for documents that do not declare one (e.g. npm)",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query index contents and health (record counts, embeddings, keyword index availability)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
