// Package config loads service configuration from the environment.
package config

import (
	"github.com/spf13/viper"
)

// Config holds the full configuration for the knowledge-graph worker.
type Config struct {
	// HTTP server configuration
	HTTP struct {
		Addr string
	}

	// Weaviate vector store configuration
	Weaviate struct {
		Host   string
		Scheme string
		APIKey string
		Class  string
	}

	// OpenAI embedding provider configuration
	OpenAI struct {
		APIKey         string
		EmbeddingModel string
	}

	// Mongo document store holding the per-node layout coordinates
	Mongo struct {
		URI        string
		Database   string
		Collection string
	}

	// Recommendation strategy tuning
	Recommendation struct {
		// SampleSize bounds the candidate pool for least-similar search.
		SampleSize int

		Analogy struct {
			// DistanceThreshold is the cosine-distance merge limit for
			// relation clustering.
			DistanceThreshold float64
			// MinClusterSize is the minimum member count for a cluster
			// to produce a centroid.
			MinClusterSize int
			// MinSimilarity is the floor below which candidates are
			// discarded.
			MinSimilarity float64
			// PrefixDims, when positive, restricts the pairwise distance
			// computation to the leading dimensions of each vector.
			PrefixDims int
		}
	}

	// Layout projection tuning
	Layout struct {
		// Concurrency bounds how many reductions may run at once.
		Concurrency int64
	}
}

// Load reads configuration from environment variables, applying defaults for
// everything that is not set.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("WEAVIATE_HOST", "localhost:8080")
	v.SetDefault("WEAVIATE_SCHEME", "http")
	v.SetDefault("WEAVIATE_CLASS", "KnowledgeRecord")
	v.SetDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small")
	v.SetDefault("MONGO_DATABASE", "chat")
	v.SetDefault("MONGO_COLLECTION", "kgraphs")
	v.SetDefault("RECOMMENDATION_SAMPLE_SIZE", 100)
	v.SetDefault("ANALOGY_DISTANCE_THRESHOLD", 0.2)
	v.SetDefault("ANALOGY_MIN_CLUSTER_SIZE", 3)
	v.SetDefault("ANALOGY_MIN_SIMILARITY", 0.75)
	v.SetDefault("ANALOGY_PREFIX_DIMS", 0)
	v.SetDefault("LAYOUT_CONCURRENCY", 1)

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("HTTP_ADDR")
	cfg.Weaviate.Host = v.GetString("WEAVIATE_HOST")
	cfg.Weaviate.Scheme = v.GetString("WEAVIATE_SCHEME")
	cfg.Weaviate.APIKey = v.GetString("WEAVIATE_API_KEY")
	cfg.Weaviate.Class = v.GetString("WEAVIATE_CLASS")
	cfg.OpenAI.APIKey = v.GetString("OPENAI_API_KEY")
	cfg.OpenAI.EmbeddingModel = v.GetString("OPENAI_EMBEDDING_MODEL")
	cfg.Mongo.URI = v.GetString("MONGO_URI")
	cfg.Mongo.Database = v.GetString("MONGO_DATABASE")
	cfg.Mongo.Collection = v.GetString("MONGO_COLLECTION")
	cfg.Recommendation.SampleSize = v.GetInt("RECOMMENDATION_SAMPLE_SIZE")
	cfg.Recommendation.Analogy.DistanceThreshold = v.GetFloat64("ANALOGY_DISTANCE_THRESHOLD")
	cfg.Recommendation.Analogy.MinClusterSize = v.GetInt("ANALOGY_MIN_CLUSTER_SIZE")
	cfg.Recommendation.Analogy.MinSimilarity = v.GetFloat64("ANALOGY_MIN_SIMILARITY")
	cfg.Recommendation.Analogy.PrefixDims = v.GetInt("ANALOGY_PREFIX_DIMS")
	cfg.Layout.Concurrency = v.GetInt64("LAYOUT_CONCURRENCY")

	return cfg, nil
}
