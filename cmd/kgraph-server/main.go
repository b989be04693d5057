// Command kgraph-server runs the knowledge-graph worker: embedding ingestion,
// recommendation strategies and layout projection behind an HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graphmind/kgraph/pkg/config"
	openaiembed "github.com/graphmind/kgraph/pkg/embedding/openai"
	"github.com/graphmind/kgraph/pkg/httpapi"
	"github.com/graphmind/kgraph/pkg/kgraph"
	"github.com/graphmind/kgraph/pkg/kgraph/numeric"
	layoutmongo "github.com/graphmind/kgraph/pkg/layoutstore/mongo"
	"github.com/graphmind/kgraph/pkg/logging"
	"github.com/graphmind/kgraph/pkg/retry"
	"github.com/graphmind/kgraph/pkg/vectorstore/weaviate"
)

func main() {
	logger := logging.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	store, err := weaviate.New(&weaviate.Config{
		Host:   cfg.Weaviate.Host,
		Scheme: cfg.Weaviate.Scheme,
		APIKey: cfg.Weaviate.APIKey,
		Class:  cfg.Weaviate.Class,
	}, weaviate.WithLogger(logger))
	if err != nil {
		logger.Error(ctx, "Failed to create vector store", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// Weaviate may still be starting when the worker comes up.
	executor := retry.NewExecutor(retry.DefaultPolicy())
	if err := executor.Execute(ctx, func() error {
		return store.EnsureClass(ctx)
	}); err != nil {
		logger.Error(ctx, "Failed to provision record class", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	embedder := openaiembed.New(cfg.OpenAI.APIKey, openaiembed.WithModel(cfg.OpenAI.EmbeddingModel))

	engine := kgraph.NewEngine(store, embedder,
		kgraph.WithLogger(logger),
		kgraph.WithReducer(numeric.NewTSNEReducer()),
		kgraph.WithSampleSize(cfg.Recommendation.SampleSize),
		kgraph.WithLayoutConcurrency(cfg.Layout.Concurrency),
		kgraph.WithAnalogyParams(kgraph.AnalogyParams{
			DistanceThreshold: cfg.Recommendation.Analogy.DistanceThreshold,
			MinClusterSize:    cfg.Recommendation.Analogy.MinClusterSize,
			MinSimilarity:     cfg.Recommendation.Analogy.MinSimilarity,
			PrefixDims:        cfg.Recommendation.Analogy.PrefixDims,
		}),
	)

	serverOptions := []httpapi.Option{httpapi.WithLogger(logger)}
	if cfg.Mongo.URI != "" {
		layouts, err := layoutmongo.New(ctx, &layoutmongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		}, layoutmongo.WithLogger(logger))
		if err != nil {
			logger.Error(ctx, "Failed to connect layout store", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		serverOptions = append(serverOptions, httpapi.WithLayoutRepository(layouts))
	} else {
		logger.Warn(ctx, "MONGO_URI not set, layout coordinates will not be persisted", nil)
	}

	api := httpapi.NewServer(engine, serverOptions...)
	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: api.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Knowledge-graph worker listening", map[string]interface{}{
		"addr": cfg.HTTP.Addr,
	})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, "Server stopped", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
