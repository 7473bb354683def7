// Package search implements hybrid retrieval over the vulnerability
// corpus: vector similarity and weighted BM25 keyword relevance run
// concurrently, their scores are fused, and an ecosystem filter is
// re-applied after fusion.
//
// Vector-side failures never surface to the caller. A transient or
// corruption-class error walks an ordered degradation chain: retry the
// vector search without its filter, then enumerate the corpus and score
// candidates by lexical overlap, then return an empty set. The response's
// Degraded flag records that a lower-quality path ran, so callers can
// distinguish "no matches" from "search degraded" from "search could not
// run" (embedding failures, the only fatal class, still propagate).
package search
