package kgraph

import "errors"

// Sentinel errors for the knowledge-graph engine. Handlers map these onto
// HTTP status codes; everything else is a plain internal failure.
var (
	// ErrMissingNodeID indicates a request without the required node ID.
	ErrMissingNodeID = errors.New("node ID is required")

	// ErrMissingUserID indicates a request without the required user ID.
	ErrMissingUserID = errors.New("user ID is required")

	// ErrMissingContent indicates a node upsert without the content the
	// embedding is derived from.
	ErrMissingContent = errors.New("node content is required")

	// ErrMissingRelationLabel indicates an edge-analogy request without a
	// relation label.
	ErrMissingRelationLabel = errors.New("relation label is required")

	// ErrEmbeddingNotFound indicates the seed node has no stored embedding.
	ErrEmbeddingNotFound = errors.New("embedding not found for node")

	// ErrTenantProvisioning indicates the tenant could not be created or
	// selected. Fatal for the calling request.
	ErrTenantProvisioning = errors.New("failed to provision tenant")

	// ErrComputationFailed indicates a clustering or reduction call failed.
	ErrComputationFailed = errors.New("numeric computation failed")

	// ErrDimensionMismatch indicates two embeddings of different dimensions
	// were combined.
	ErrDimensionMismatch = errors.New("embedding dimensions do not match")

	// ErrMalformedMetadata indicates a stored record's metadata does not
	// decode into a known shape.
	ErrMalformedMetadata = errors.New("malformed record metadata")
)
