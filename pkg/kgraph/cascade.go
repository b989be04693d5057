package kgraph

import (
	"context"

	"github.com/graphmind/kgraph/pkg/interfaces"
)

// cascadedEdge is one edge awaiting re-embedding, carrying the metadata and
// document it was stored with.
type cascadedEdge struct {
	meta EdgeMeta
	doc  string
}

// cascadeEdges re-derives the embedding of every edge touching one of the
// just-upserted nodes. The candidate set is the union of edges whose source or
// target is among the updated IDs; an edge updated on both sides is processed
// once. Edges with an unresolvable endpoint are skipped and stay stale until a
// later cascade; nothing here fails the caller's batch. All recomputed edges
// go back to the store in a single batched upsert.
func (e *Engine) cascadeEdges(ctx context.Context, tenant string, updated map[string][]float32) {
	if len(updated) == 0 {
		return
	}

	ids := make([]string, 0, len(updated))
	for id := range updated {
		ids = append(ids, id)
	}

	candidates := map[string]cascadedEdge{}
	for _, field := range []string{fieldSourceID, fieldTargetID} {
		set := e.edgesTouching(ctx, tenant, field, ids)
		for i, id := range set.IDs {
			if _, ok := candidates[id]; ok {
				continue
			}
			meta, err := DecodeMetadata(set.Metadatas[i])
			if err != nil || meta.Edge == nil {
				e.logger.Warn(ctx, "Skipping edge with undecodable metadata", map[string]interface{}{
					"edgeId": id,
				})
				continue
			}
			doc := ""
			if i < len(set.Documents) {
				doc = set.Documents[i]
			}
			candidates[id] = cascadedEdge{meta: *meta.Edge, doc: doc}
		}
	}

	if len(candidates) == 0 {
		return
	}

	// Resolve endpoints outside the updated set from the store in one fetch.
	missing := make([]string, 0)
	seen := map[string]bool{}
	for _, edge := range candidates {
		for _, endpoint := range []string{edge.meta.SourceID, edge.meta.TargetID} {
			if _, ok := updated[endpoint]; !ok && !seen[endpoint] {
				seen[endpoint] = true
				missing = append(missing, endpoint)
			}
		}
	}
	fetched, err := e.fetchEmbeddings(ctx, tenant, missing)
	if err != nil {
		// The affected edges stay stale until a later cascade; the node
		// batch already succeeded and must not fail retroactively.
		e.logger.Warn(ctx, "Endpoint fetch failed during cascade, leaving edges stale", map[string]interface{}{
			"endpoints": len(missing),
			"error":     err.Error(),
		})
		fetched = map[string][]float32{}
	}
	resolve := func(id string) ([]float32, bool) {
		if v, ok := updated[id]; ok {
			return v, true
		}
		v, ok := fetched[id]
		return v, ok
	}

	records := make([]interfaces.Record, 0, len(candidates))
	for id, edge := range candidates {
		source, okS := resolve(edge.meta.SourceID)
		target, okT := resolve(edge.meta.TargetID)
		if !okS || !okT {
			e.logger.Warn(ctx, "Leaving edge stale: endpoint embedding unavailable", map[string]interface{}{
				"edgeId":   id,
				"sourceId": edge.meta.SourceID,
				"targetId": edge.meta.TargetID,
			})
			continue
		}
		vector, err := EdgeEmbedding(source, target)
		if err != nil {
			e.logger.Warn(ctx, "Leaving edge stale: endpoint dimensions mismatch", map[string]interface{}{
				"edgeId": id,
				"error":  err.Error(),
			})
			continue
		}
		// Only the embedding changes; metadata and document are written
		// back exactly as stored.
		record := edgeRecord(Edge{
			ID:        id,
			SourceID:  edge.meta.SourceID,
			TargetID:  edge.meta.TargetID,
			Label:     edge.meta.Label,
			Embedding: vector,
		})
		record.Document = edge.doc
		records = append(records, record)
	}

	if len(records) == 0 {
		return
	}
	if err := e.store.Upsert(ctx, tenant, records); err != nil {
		e.logger.Warn(ctx, "Cascade write failed, leaving edges stale", map[string]interface{}{
			"edges": len(records),
			"error": err.Error(),
		})
		return
	}

	e.logger.Info(ctx, "Cascade recomputed edge embeddings", map[string]interface{}{
		"updatedNodes": len(updated),
		"edges":        len(records),
	})
}

// edgesTouching fetches edge records whose endpoint field is in the updated
// set. A store failure here yields an empty set rather than failing the
// cascade: the affected edges stay eligible for a later run.
func (e *Engine) edgesTouching(ctx context.Context, tenant, endpointField string, ids []string) interfaces.RecordSet {
	set, err := e.store.Get(ctx, tenant, interfaces.GetRequest{
		Where: interfaces.And(
			interfaces.FieldEquals(fieldType, TypeEdge),
			interfaces.FieldIn(endpointField, ids...),
		),
		Include: interfaces.Include{Documents: true, Metadata: true},
	})
	if err != nil {
		e.logger.Warn(ctx, "Edge lookup failed during cascade, treating as empty", map[string]interface{}{
			"endpointField": endpointField,
			"error":         err.Error(),
		})
		return interfaces.RecordSet{}
	}
	return set
}
