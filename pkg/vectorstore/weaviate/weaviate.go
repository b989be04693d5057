// Package weaviate implements the vector store contract on Weaviate, using
// native multi-tenancy: one class, one tenant per end user.
package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/graphmind/kgraph/pkg/interfaces"
	"github.com/graphmind/kgraph/pkg/logging"
)

// getLimit caps unfiltered fetches. Weaviate defaults to a small page size,
// so "get everything in the tenant" needs an explicit bound.
const getLimit = 10000

// metadataFields are the record properties exposed through the metadata map.
var metadataFields = []string{"recordType", "label", "sourceId", "targetId"}

// Config holds connection configuration for the Weaviate store.
type Config struct {
	// Host is the hostname of the Weaviate server (e.g., "localhost:8080")
	Host string

	// Scheme is the URL scheme ("http" or "https")
	Scheme string

	// APIKey is the authentication key for Weaviate Cloud
	APIKey string

	// Class is the collection name (default: "KnowledgeRecord")
	Class string
}

// Store implements interfaces.VectorStore against a Weaviate server.
type Store struct {
	client *weaviate.Client
	class  string
	logger logging.Logger
}

// Option represents an option for configuring the store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Weaviate store.
func New(config *Config, options ...Option) (*Store, error) {
	if config == nil {
		config = &Config{Host: "localhost:8080", Scheme: "http"}
	}

	store := &Store{
		class:  "KnowledgeRecord",
		logger: logging.New(),
	}
	if config.Class != "" {
		store.class = config.Class
	}
	for _, option := range options {
		option(store)
	}

	cfg := weaviate.Config{
		Host:   config.Host,
		Scheme: config.Scheme,
	}
	if config.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: config.APIKey}
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}
	store.client = client

	return store, nil
}

// EnsureClass provisions the record class with multi-tenancy enabled and a
// cosine vector index. Idempotent; meant to run once at startup.
func (s *Store) EnsureClass(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(s.class).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check class %s: %w", s.class, err)
	}
	if exists {
		return nil
	}

	properties := make([]*models.Property, 0, len(metadataFields)+2)
	for _, name := range append([]string{"recordId", "content"}, metadataFields...) {
		properties = append(properties, &models.Property{
			Name:     name,
			DataType: []string{"text"},
		})
	}

	class := &models.Class{
		Class:             s.class,
		Vectorizer:        "none",
		VectorIndexConfig: map[string]interface{}{"distance": "cosine"},
		MultiTenancyConfig: &models.MultiTenancyConfig{
			Enabled: true,
		},
		Properties: properties,
	}

	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		// A concurrent creator may have won the race.
		exists, checkErr := s.client.Schema().ClassExistenceChecker().
			WithClassName(s.class).
			Do(ctx)
		if checkErr != nil || !exists {
			return fmt.Errorf("failed to create class %s: %w", s.class, err)
		}
	}

	s.logger.Info(ctx, "Record class provisioned", map[string]interface{}{
		"class": s.class,
	})
	return nil
}

// EnsureTenant makes the tenant usable, creating it on first use. Creation
// races with concurrent requests are tolerated: whoever loses re-verifies.
func (s *Store) EnsureTenant(ctx context.Context, tenant string) error {
	exists, err := s.tenantExists(ctx, tenant)
	if err == nil && exists {
		return nil
	}

	createErr := s.client.Schema().TenantsCreator().
		WithClassName(s.class).
		WithTenants(models.Tenant{Name: tenant}).
		Do(ctx)
	if createErr == nil {
		return nil
	}

	exists, err = s.tenantExists(ctx, tenant)
	if err != nil || !exists {
		return fmt.Errorf("failed to provision tenant %s: %w", tenant, createErr)
	}
	return nil
}

func (s *Store) tenantExists(ctx context.Context, tenant string) (bool, error) {
	return s.client.Schema().TenantsExists().
		WithClassName(s.class).
		WithTenant(tenant).
		Do(ctx)
}

// recordUUID derives a stable Weaviate object ID from the record identity, so
// writing the same record twice is an update rather than a duplicate.
func (s *Store) recordUUID(tenant, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(s.class+"/"+tenant+"/"+id)).String()
}

// Upsert writes records into the tenant in one batch call.
func (s *Store) Upsert(ctx context.Context, tenant string, records []interfaces.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := s.client.Batch().ObjectsBatcher()
	for _, record := range records {
		properties := map[string]interface{}{
			"recordId": record.ID,
			"content":  record.Document,
		}
		for k, v := range record.Metadata {
			properties[k] = v
		}

		obj := &models.Object{
			Class:      s.class,
			ID:         strfmt.UUID(s.recordUUID(tenant, record.ID)),
			Tenant:     tenant,
			Properties: properties,
		}
		if len(record.Embedding) > 0 {
			obj.Vector = record.Embedding
		}
		batch.WithObjects(obj)
	}

	result, err := batch.Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert batch: %w", err)
	}
	if err := batchObjectErrors(result); err != nil {
		s.logger.Error(ctx, "Batch upsert rejected objects", map[string]interface{}{
			"error":  err.Error(),
			"tenant": tenant,
		})
		return fmt.Errorf("failed to upsert batch: %w", err)
	}
	return nil
}

// batchObjectErrors surfaces per-object failures from a batch response. The
// batch call itself succeeds even when individual objects are rejected, and a
// silently dropped write must not be reported as stored.
func batchObjectErrors(result []models.ObjectsGetResponse) error {
	failed := 0
	first := ""
	for _, res := range result {
		if res.Result != nil && res.Result.Errors != nil && len(res.Result.Errors.Error) > 0 {
			failed++
			if first == "" && res.Result.Errors.Error[0] != nil {
				first = res.Result.Errors.Error[0].Message
			}
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d objects failed: %s", failed, len(result), first)
}

// Get fetches records by ID and/or metadata filter.
func (s *Store) Get(ctx context.Context, tenant string, req interfaces.GetRequest) (interfaces.RecordSet, error) {
	fields := []graphql.Field{{Name: "recordId"}}
	if req.Include.Documents {
		fields = append(fields, graphql.Field{Name: "content"})
	}
	if req.Include.Metadata {
		for _, name := range metadataFields {
			fields = append(fields, graphql.Field{Name: name})
		}
	}
	if req.Include.Embeddings {
		fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "vector"}}})
	}

	where := req.Where
	if len(req.IDs) > 0 {
		idFilter := interfaces.FieldIn("recordId", req.IDs...)
		if where != nil {
			where = interfaces.And(where, idFilter)
		} else {
			where = idFilter
		}
	}

	queryBuilder := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithTenant(tenant).
		WithFields(fields...).
		WithLimit(getLimit)
	if filter := buildWhereFilter(where); filter != nil {
		queryBuilder = queryBuilder.WithWhere(filter)
	}

	result, err := queryBuilder.Do(ctx)
	if err != nil {
		return interfaces.RecordSet{}, fmt.Errorf("failed to fetch records: %w", err)
	}
	if err := graphqlErrors(result); err != nil {
		return interfaces.RecordSet{}, err
	}

	return s.parseRecordSet(result, req.Include), nil
}

// Delete removes records by ID; unknown IDs match nothing and are ignored.
func (s *Store) Delete(ctx context.Context, tenant string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithTenant(tenant).
		WithWhere(buildWhereFilter(interfaces.FieldIn("recordId", ids...))).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

// Query returns the nearest neighbors of the given vector with distances,
// ranked ascending.
func (s *Store) Query(ctx context.Context, tenant string, req interfaces.QueryRequest) (interfaces.QueryResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(req.Vector)

	queryBuilder := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithTenant(tenant).
		WithFields(
			graphql.Field{Name: "recordId"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearVector(nearVector).
		WithLimit(req.Limit)
	if filter := buildWhereFilter(req.Where); filter != nil {
		queryBuilder = queryBuilder.WithWhere(filter)
	}

	result, err := queryBuilder.Do(ctx)
	if err != nil {
		return interfaces.QueryResult{}, fmt.Errorf("failed to query records: %w", err)
	}
	if err := graphqlErrors(result); err != nil {
		return interfaces.QueryResult{}, err
	}

	out := interfaces.QueryResult{}
	for _, item := range classItems(result, s.class) {
		id, _ := item["recordId"].(string)
		distance := float32(0)
		if additional, ok := item["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				distance = float32(d)
			}
		}
		out.IDs = append(out.IDs, id)
		out.Distances = append(out.Distances, distance)
	}
	return out, nil
}

// buildWhereFilter translates the contract's filter language into a Weaviate
// where clause.
func buildWhereFilter(f *interfaces.Filter) *filters.WhereBuilder {
	if f == nil {
		return nil
	}
	switch f.Operator {
	case interfaces.FilterEqual:
		return filters.Where().
			WithPath([]string{f.Field}).
			WithOperator(filters.Equal).
			WithValueText(f.Value)
	case interfaces.FilterIn:
		return filters.Where().
			WithPath([]string{f.Field}).
			WithOperator(filters.ContainsAny).
			WithValueText(f.Values...)
	case interfaces.FilterAnd:
		operands := make([]*filters.WhereBuilder, 0, len(f.Operands))
		for _, op := range f.Operands {
			if built := buildWhereFilter(op); built != nil {
				operands = append(operands, built)
			}
		}
		if len(operands) == 0 {
			return nil
		}
		return filters.Where().
			WithOperator(filters.And).
			WithOperands(operands)
	default:
		return nil
	}
}

// graphqlErrors surfaces GraphQL-level errors the client call itself does not
// return as Go errors.
func graphqlErrors(result *models.GraphQLResponse) error {
	if len(result.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("graphql error: %s", result.Errors[0].Message)
}

// classItems extracts the per-object maps from a GraphQL Get response.
func classItems(result *models.GraphQLResponse, className string) []map[string]interface{} {
	if result.Data == nil {
		return nil
	}
	getData, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	classData, ok := getData[className].([]interface{})
	if !ok {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(classData))
	for _, item := range classData {
		if itemMap, ok := item.(map[string]interface{}); ok {
			items = append(items, itemMap)
		}
	}
	return items
}

// parseRecordSet converts a GraphQL Get response into the contract's
// parallel-array result.
func (s *Store) parseRecordSet(result *models.GraphQLResponse, include interfaces.Include) interfaces.RecordSet {
	set := interfaces.RecordSet{}
	for _, item := range classItems(result, s.class) {
		id, _ := item["recordId"].(string)
		set.IDs = append(set.IDs, id)

		if include.Documents {
			doc, _ := item["content"].(string)
			set.Documents = append(set.Documents, doc)
		}
		if include.Metadata {
			meta := map[string]interface{}{}
			for _, name := range metadataFields {
				if v, ok := item[name].(string); ok && v != "" {
					meta[name] = v
				}
			}
			set.Metadatas = append(set.Metadatas, meta)
		}
		if include.Embeddings {
			var vector []float32
			if additional, ok := item["_additional"].(map[string]interface{}); ok {
				if raw, ok := additional["vector"].([]interface{}); ok {
					vector = make([]float32, len(raw))
					for i, v := range raw {
						if f, ok := v.(float64); ok {
							vector[i] = float32(f)
						}
					}
				}
			}
			set.Embeddings = append(set.Embeddings, vector)
		}
	}
	return set
}
