// Package types defines the shared data model for the vulnerability
// retrieval core: the canonical VulnerabilityRecord, search results with
// their scoring metadata, the error taxonomy used across adapters, and
// vulnerability identifier validation.
package types
