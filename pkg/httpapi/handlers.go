package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/graphmind/kgraph/pkg/kgraph"
	"github.com/graphmind/kgraph/pkg/multitenancy"
)

// NodeItem is one node in an embed request.
type NodeItem struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// EdgeItem is one edge in an embed request.
type EdgeItem struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label"`
}

// EmbedNodesRequest is the body of POST /embed/node.
type EmbedNodesRequest struct {
	UserID string     `json:"user_id"`
	Nodes  []NodeItem `json:"nodes"`
}

// EmbedEdgesRequest is the body of POST /embed/edge.
type EmbedEdgesRequest struct {
	UserID string     `json:"user_id"`
	Edges  []EdgeItem `json:"edges"`
}

// DeleteRequest is the body of POST /embed/delete.
type DeleteRequest struct {
	UserID string   `json:"user_id"`
	IDs    []string `json:"ids"`
}

// RecommendationRequest is the body of POST /recommendation; the strategy is
// selected by the `method` query parameter.
type RecommendationRequest struct {
	UserID string `json:"user_id"`
	NodeID string `json:"node_id"`
	Label  string `json:"label,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

// LayoutRequest is the body of POST /calculate-layout.
type LayoutRequest struct {
	UserID string `json:"user_id"`
}

// DocumentsResult mirrors the stored records after an embed call.
type DocumentsResult struct {
	IDs        []string    `json:"ids"`
	Documents  []string    `json:"documents"`
	Embeddings [][]float32 `json:"embeddings"`
}

// RecommendationResult carries the ranked recommendations of one strategy.
type RecommendationResult struct {
	Method          string                  `json:"method"`
	Recommendations []kgraph.Recommendation `json:"recommendations"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, "ok")
}

func (s *Server) embedNodes(w http.ResponseWriter, r *http.Request) {
	var req EmbedNodesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "Missing user_id in request body")
		return
	}
	ctx := multitenancy.WithUserID(r.Context(), req.UserID)

	inputs := make([]kgraph.NodeInput, len(req.Nodes))
	for i, n := range req.Nodes {
		inputs[i] = kgraph.NodeInput{ID: n.ID, Content: n.Content}
	}

	nodes, err := s.engine.UpsertNodes(ctx, req.UserID, inputs)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	result := DocumentsResult{
		IDs:        make([]string, len(nodes)),
		Documents:  make([]string, len(nodes)),
		Embeddings: make([][]float32, len(nodes)),
	}
	for i, node := range nodes {
		result.IDs[i] = node.ID
		result.Documents[i] = node.Content
		result.Embeddings[i] = node.Embedding
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) embedEdges(w http.ResponseWriter, r *http.Request) {
	var req EmbedEdgesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "Missing user_id in request body")
		return
	}
	ctx := multitenancy.WithUserID(r.Context(), req.UserID)

	inputs := make([]kgraph.EdgeInput, len(req.Edges))
	for i, e := range req.Edges {
		inputs[i] = kgraph.EdgeInput{ID: e.ID, SourceID: e.SourceID, TargetID: e.TargetID, Label: e.Label}
	}

	edges, err := s.engine.UpsertEdges(ctx, req.UserID, inputs)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	result := DocumentsResult{
		IDs:        make([]string, len(edges)),
		Documents:  make([]string, len(edges)),
		Embeddings: make([][]float32, len(edges)),
	}
	for i, edge := range edges {
		result.IDs[i] = edge.ID
		result.Documents[i] = edge.Label
		result.Embeddings[i] = edge.Embedding
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) deleteRecords(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "Missing user_id in request body")
		return
	}
	ctx := multitenancy.WithUserID(r.Context(), req.UserID)

	if len(req.IDs) == 0 {
		s.respondJSON(w, http.StatusOK, map[string]int{"deleted": 0})
		return
	}
	if err := s.engine.DeleteRecords(ctx, req.UserID, req.IDs); err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"deleted": len(req.IDs)})
}

func (s *Server) recommendation(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "Missing user_id in request body")
		return
	}
	ctx := multitenancy.WithUserID(r.Context(), req.UserID)

	method := r.URL.Query().Get("method")
	if method == "" {
		method = "synonyms"
	}

	var (
		recommendations []kgraph.Recommendation
		err             error
	)
	switch method {
	case "synonyms":
		recommendations, err = s.engine.Synonyms(ctx, req.UserID, req.NodeID, req.TopK)
	case "least_similar":
		recommendations, err = s.engine.LeastSimilar(ctx, req.UserID, req.NodeID, req.TopK)
	case "edge_analogy":
		recommendations, err = s.engine.EdgeAnalogy(ctx, req.UserID, req.NodeID, req.Label, req.TopK)
	default:
		s.respondError(w, http.StatusBadRequest, "Unknown recommendation method: "+method)
		return
	}
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, RecommendationResult{
		Method:          method,
		Recommendations: recommendations,
	})
}

func (s *Server) calculateLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		s.respondError(w, http.StatusBadRequest, "Missing user_id in request body")
		return
	}
	ctx := multitenancy.WithUserID(r.Context(), req.UserID)

	coords, err := s.engine.ProjectLayout(ctx, req.UserID)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	// An empty tenant returns an empty list and skips persistence.
	if len(coords) > 0 && s.layouts != nil {
		if _, err := s.layouts.SavePositions(ctx, req.UserID, coords); err != nil {
			s.logger.Error(ctx, "Failed to persist layout coordinates", map[string]interface{}{
				"error": err.Error(),
			})
			s.respondError(w, http.StatusInternalServerError, "Failed to persist layout coordinates")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, coords)
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// respondEngineError maps engine sentinels onto HTTP statuses.
func (s *Server) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, kgraph.ErrEmbeddingNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, kgraph.ErrMissingNodeID),
		errors.Is(err, kgraph.ErrMissingUserID),
		errors.Is(err, kgraph.ErrMissingContent),
		errors.Is(err, kgraph.ErrMissingRelationLabel),
		errors.Is(err, kgraph.ErrMalformedMetadata):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(r.Context(), "Request failed", map[string]interface{}{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(context.Background(), "Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}
