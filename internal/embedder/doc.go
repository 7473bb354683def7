// Package embedder generates vector embeddings for vulnerability text.
//
// Two backends are supported: the OpenAI embeddings API (hosted, used when
// an API key is configured) and a local Ollama server. Backend selection
// happens once at construction: candidates are tried in priority order and
// each is probed with a cheap live call before being accepted. When every
// candidate fails the probe, construction fails with
// types.ErrNoEmbeddingBackend; there is no degraded embedding path.
//
// Every vector returned by this package is guaranteed to have the
// provider's declared dimension and to contain only finite values;
// NaN/Inf components are repaired to 0 and logged.
//
// Embeddings are cached in-memory by content hash (LRU), and API calls are
// retried with exponential backoff.
package embedder
