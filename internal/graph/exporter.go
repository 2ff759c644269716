// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/joeott/legal-doc-processor-sub010/internal/logging"
	"github.com/joeott/legal-doc-processor-sub010/internal/metrics"
	"github.com/joeott/legal-doc-processor-sub010/internal/models"
	"github.com/joeott/legal-doc-processor-sub010/internal/statestore"
)

// Config holds graph export settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string

	// Interval between export sweeps.
	Interval time.Duration
}

// Exporter sweeps completed documents and writes their staged relationships
// to the graph store. Runs under the supervision tree.
type Exporter struct {
	store  *statestore.Store
	driver neo4j.DriverWithContext
	cfg    Config
}

// NewExporter connects the Bolt driver. The connection is verified lazily on
// first export so a graph store that is down at boot does not block startup.
func NewExporter(store *statestore.Store, cfg Config) (*Exporter, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("create graph driver: %w", err)
	}

	return &Exporter{store: store, driver: driver, cfg: cfg}, nil
}

// String names the service in supervisor logs.
func (e *Exporter) String() string { return "graph-exporter" }

// Close releases the driver.
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// Serve sweeps on the configured interval until the context is canceled.
func (e *Exporter) Serve(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Graph export sweep failed")
			}
		}
	}
}

// Sweep exports every completed document that still has unexported records.
func (e *Exporter) Sweep(ctx context.Context) error {
	var pending []*models.Document
	err := e.store.ListDocuments(ctx, func(doc *models.Document) error {
		if doc.Stage != models.StageCompleted {
			return nil
		}
		d := *doc
		pending = append(pending, &d)
		return nil
	})
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	for _, doc := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.ExportDocument(ctx, doc.ID); err != nil {
			metrics.GraphExportErrors.Inc()
			logging.Ctx(ctx).Error().
				Err(err).
				Str("document_id", doc.ID.String()).
				Msg("Graph export failed for document")
		}
	}
	return nil
}

// ExportDocument writes one document's unexported relationships in a single
// write transaction, then flags them exported. Already-exported documents
// are a no-op.
func (e *Exporter) ExportDocument(ctx context.Context, docID uuid.UUID) error {
	rels, err := e.store.GetRelationships(ctx, docID)
	if err != nil {
		if errors.Is(err, statestore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load relationships: %w", err)
	}

	var batch []models.RelationshipStagingRecord
	for _, r := range rels {
		if !r.Exported {
			batch = append(batch, r)
		}
	}
	if len(batch) == 0 {
		return nil
	}

	entities, err := e.store.GetEntities(ctx, docID)
	if err != nil && !errors.Is(err, statestore.ErrNotFound) {
		return fmt.Errorf("load entities: %w", err)
	}
	props := entityProps(entities)

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.cfg.Database,
	})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, rel := range batch {
			if err := mergeNode(ctx, tx, rel.From, props); err != nil {
				return nil, err
			}
			if err := mergeNode(ctx, tx, rel.To, props); err != nil {
				return nil, err
			}
			if err := mergeEdge(ctx, tx, rel); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	if err := e.store.MarkRelationshipsExported(ctx, docID); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}

	metrics.GraphExportRelationships.Add(float64(len(batch)))
	logging.Ctx(ctx).Info().
		Str("document_id", docID.String()).
		Int("relationships", len(batch)).
		Msg("Exported document relationships to graph store")
	return nil
}

// entityProps indexes canonical entity display properties by node ID.
func entityProps(entities []models.CanonicalEntity) map[string]map[string]any {
	out := make(map[string]map[string]any, len(entities))
	for _, e := range entities {
		out[e.ID.String()] = map[string]any{
			"name":       e.Name,
			"type":       string(e.Type),
			"confidence": e.Confidence,
			"mentions":   e.MentionCount(),
		}
	}
	return out
}

// nodeLabel maps a node kind to its Cypher label. Labels cannot be
// parameterized; kinds are a closed set so interpolation is safe.
func nodeLabel(kind models.NodeKind) string {
	switch kind {
	case models.NodeDocument:
		return "Document"
	case models.NodeChunk:
		return "Chunk"
	case models.NodeProject:
		return "Project"
	case models.NodeEntity:
		return "Entity"
	default:
		return "Node"
	}
}

func mergeNode(ctx context.Context, tx neo4j.ManagedTransaction, ref models.NodeRef, props map[string]map[string]any) error {
	cypher := fmt.Sprintf("MERGE (n:%s {id: $id})", nodeLabel(ref.Kind))
	params := map[string]any{"id": ref.ID}
	if p, ok := props[ref.ID]; ok && ref.Kind == models.NodeEntity {
		cypher += " SET n += $props"
		params["props"] = p
	}
	_, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return fmt.Errorf("merge %s node %s: %w", ref.Kind, ref.ID, err)
	}
	return nil
}

func mergeEdge(ctx context.Context, tx neo4j.ManagedTransaction, rel models.RelationshipStagingRecord) error {
	cypher := fmt.Sprintf(`
		MATCH (a:%s {id: $from}), (b:%s {id: $to})
		MERGE (a)-[r:%s {id: $id}]->(b)
		SET r.confidence = $confidence, r.document_id = $document_id
	`, nodeLabel(rel.From.Kind), nodeLabel(rel.To.Kind), string(rel.Type))

	_, err := tx.Run(ctx, cypher, map[string]any{
		"from":        rel.From.ID,
		"to":          rel.To.ID,
		"id":          rel.ID.String(),
		"confidence":  rel.Confidence,
		"document_id": rel.DocumentID.String(),
	})
	if err != nil {
		return fmt.Errorf("merge %s edge %s: %w", rel.Type, rel.ID, err)
	}
	return nil
}
