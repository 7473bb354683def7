// Package ingest loads OSV advisory documents from disk, builds their
// semantic content, embeds them in batches, and upserts them into the
// index. Re-running the pipeline over the same feed is idempotent: the
// upsert key is derived from the record id.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/osvquery/vulncontext-mcp/internal/embedder"
	"github.com/osvquery/vulncontext-mcp/internal/storage"
	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

const (
	// embedBatchSize bounds texts per embedding batch call.
	embedBatchSize = 50

	// upsertWorkers bounds concurrent index writes.
	upsertWorkers = 4
)

// Stats summarizes one pipeline run.
type Stats struct {
	Loaded    int           `json:"loaded"`
	Skipped   int           `json:"skipped"`
	Upserted  int           `json:"upserted"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"-"`
	Ecosystem string        `json:"ecosystem,omitempty"`

	// ErrorMessages holds the first few failures for reporting.
	ErrorMessages []string `json:"errors,omitempty"`
}

// Pipeline embeds and upserts vulnerability records.
type Pipeline struct {
	index    storage.VectorIndex
	embedder embedder.Embedder
	log      *logrus.Entry
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(index storage.VectorIndex, emb embedder.Embedder, log *logrus.Entry) *Pipeline {
	return &Pipeline{index: index, embedder: emb, log: log}
}

// IngestDirectory walks dir for OSV JSON documents, converts and ingests
// them. ecosystem tags records whose documents carry no package
// ecosystem of their own. Withdrawn and malformed documents are skipped,
// not fatal.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir, ecosystem string) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Ecosystem: ecosystem}

	var records []*types.VulnerabilityRecord
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			stats.Failed++
			stats.recordError(fmt.Sprintf("%s: %v", filepath.Base(path), err))
			return nil
		}
		doc, err := parseOSV(data)
		if err != nil {
			stats.Skipped++
			p.log.WithError(err).WithField("file", filepath.Base(path)).Debug("skipping document")
			return nil
		}
		if doc.Withdrawn != "" {
			stats.Skipped++
			return nil
		}

		records = append(records, doc.toRecord(ecosystem))
		stats.Loaded++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	if err := p.IngestRecords(ctx, records, stats); err != nil {
		return stats, err
	}
	stats.Duration = time.Since(start)
	p.log.WithFields(logrus.Fields{
		"loaded":   stats.Loaded,
		"skipped":  stats.Skipped,
		"upserted": stats.Upserted,
		"failed":   stats.Failed,
		"duration": stats.Duration,
	}).Info("ingestion complete")
	return stats, nil
}

// IngestRecords embeds records in batches and writes them concurrently.
// A failed batch embedding fails those records but not the whole run.
func (p *Pipeline) IngestRecords(ctx context.Context, records []*types.VulnerabilityRecord, stats *Stats) error {
	for i := 0; i < len(records); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]

		texts := make([]string, len(batch))
		for j, rec := range batch {
			texts[j] = rec.Content
		}

		resp, err := p.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats.Failed += len(batch)
			stats.recordError(fmt.Sprintf("batch embed: %v", err))
			p.log.WithError(err).Warn("batch embedding failed, skipping batch")
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(upsertWorkers)
		results := make([]error, len(batch))
		for j, rec := range batch {
			g.Go(func() error {
				results[j] = p.index.Upsert(gctx, rec, resp.Embeddings[j].Vector)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for j, uerr := range results {
			if uerr != nil {
				stats.Failed++
				stats.recordError(fmt.Sprintf("%s: %v", batch[j].ID, uerr))
			} else {
				stats.Upserted++
			}
		}
	}
	return nil
}

const maxReportedErrors = 5

func (s *Stats) recordError(msg string) {
	if len(s.ErrorMessages) < maxReportedErrors {
		s.ErrorMessages = append(s.ErrorMessages, msg)
	}
}
