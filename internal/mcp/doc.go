// Package mcp implements the Model Context Protocol (MCP) server for
// vulnerability retrieval and risk scoring.
//
// The server exposes five tools to AI assistants:
//   - search_vulnerabilities: hybrid semantic + keyword search over the corpus
//   - get_vulnerability_by_id: exact lookup by CVE/GHSA identifier or alias
//   - prioritize_vulnerabilities: risk-rank a set of identifiers
//   - ingest_osv_data: load OSV JSON advisories into the index
//   - get_status: index contents and health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Tool: search_vulnerabilities
//
//	Request:
//	{
//	  "name": "search_vulnerabilities",
//	  "arguments": {
//	    "query": "prototype pollution in lodash",
//	    "ecosystems": ["npm"],
//	    "limit": 5
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "id": "GHSA-p6mc-m468-83gw",
//	      "summary": "Prototype Pollution in lodash",
//	      "ecosystem": "npm",
//	      "similarity_score": 0.87,
//	      "bm25_score": 6.2,
//	      "combined_score": 0.795
//	    }
//	  ],
//	  "total_found": 1,
//	  "degraded": false,
//	  "search_method": "hybrid",
//	  "extracted_entities": {"ecosystems": ["npm"]},
//	  "timestamp": "2026-08-29T12:00:00Z"
//	}
//
// The degraded flag distinguishes "no matches" from "search ran on a
// lower-quality fallback path" (unfiltered vector retry or lexical scan).
//
// # Tool: prioritize_vulnerabilities
//
//	Request:
//	{
//	  "name": "prioritize_vulnerabilities",
//	  "arguments": {
//	    "ids": ["CVE-2024-3094", "CVE-2021-44228"],
//	    "asset_context": {
//	      "CVE-2021-44228": {"criticality": 3.0, "internet_exposed": true}
//	    }
//	  }
//	}
//
// Returns the records ranked by overall risk score with a distribution
// summary (counts per level, average score, average confidence).
//
// # Error Handling
//
// Standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {"param": "query", "reason": "missing or empty"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (storage, embedding backend)
//   - -32001: Empty query
//   - -32002: Identifier does not match the accepted grammar
//   - -32003: Ingest path missing or unreadable
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "vulncontext": {
//	      "command": "/usr/local/bin/vulncontext",
//	      "args": ["serve"],
//	      "env": {
//	        "OPENAI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
package mcp
