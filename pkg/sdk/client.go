package ragdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/chunker"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/db/sqlite"
	"github.com/kailas-cloud/ragdex/internal/domain"
	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/job"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/extract"
	documentrepo "github.com/kailas-cloud/ragdex/internal/repository/document"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
	batchuc "github.com/kailas-cloud/ragdex/internal/usecase/batch"
	documentuc "github.com/kailas-cloud/ragdex/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragdex/internal/usecase/health"
	"github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	"github.com/kailas-cloud/ragdex/internal/usecase/queue"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

const (
	defaultVectorDimensions = 1536
	defaultReadinessTimeout = 10 * time.Second
	defaultHNSWM            = 16
	defaultHNSWEFConstruct  = 200
)

// Internal interfaces for substitution in tests.
type batchUseCase interface {
	Upsert(ctx context.Context, userID string, items []batchuc.Item) []dombatch.Result
	Delete(ctx context.Context, userID string, ids []string) []dombatch.Result
}

type documentUseCase interface {
	Get(ctx context.Context, userID, id string) (domdoc.Document, error)
	List(ctx context.Context, userID string) ([]domdoc.Document, error)
	Status(ctx context.Context, userID, id string) (domdoc.IngestStatus, error)
}

type searchUseCase interface {
	Query(ctx context.Context, req *request.Request) (result.Response, error)
}

type queueUseCase interface {
	Enqueue(ctx context.Context, req job.Request) (string, error)
	Status(id string) (job.Status, error)
	Drain(ctx context.Context) error
	Stop()
}

// Client is the ragdex entry point.
type Client struct {
	store     *sqlite.Store
	index     *dbRedis.Store
	docSvc    documentUseCase
	batchSvc  batchUseCase
	searchSvc searchUseCase
	queue     queueUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New opens the document store and starts the ingest worker.
// The provided context is used for opening the store and the initial
// readiness check of an external index.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: defaultVectorDimensions,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dbPath == "" {
		return nil, errors.New("ragdex: database path required (use WithDatabase)")
	}
	if cfg.vectorDimensions <= 0 {
		return nil, fmt.Errorf("ragdex: %w: vector dimensions must be positive", domain.ErrInvalidInput)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(ctx, cfg.dbPath)
	if err != nil {
		return nil, fmt.Errorf("ragdex: open database: %w: %w", domain.ErrDBUnavailable, err)
	}

	index, err := openIndex(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return wireClient(store, index, cfg, obs), nil
}

func openIndex(ctx context.Context, cfg *clientConfig) (*dbRedis.Store, error) {
	if len(cfg.redisAddrs) == 0 {
		return nil, nil
	}
	idx, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:     cfg.redisAddrs,
		Password:  cfg.redisPassword,
		IndexName: cfg.indexName,
	})
	if err != nil {
		return nil, fmt.Errorf("ragdex: create redis index: %w", err)
	}
	if err := idx.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		idx.Close()
		return nil, fmt.Errorf("ragdex: redis not ready: %w", err)
	}
	if err := idx.EnsureIndex(ctx, cfg.vectorDimensions, defaultHNSWM, defaultHNSWEFConstruct); err != nil {
		idx.Close()
		return nil, fmt.Errorf("ragdex: ensure index: %w", err)
	}
	return idx, nil
}

func wireClient(store *sqlite.Store, index *dbRedis.Store, cfg *clientConfig, obs *observer) *Client {
	dim := cfg.vectorDimensions

	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store, dim)
	if index != nil {
		searchRepo = searchRepo.WithIndex(index)
	}

	var inner domain.Embedder = domain.StubEmbedder{}
	if cfg.embedder != nil {
		inner = &embedderAdapter{inner: cfg.embedder}
	}
	emb := embeddinguc.NewInstrumentedEmbedder(inner, "client", "custom", dim, zap.NewNop()).
		WithBatchSize(cfg.embedBatchSize)

	ingester := ingest.New(extract.New(), docRepo, searchRepo, emb).
		WithChunking(chunkOptions(cfg))
	if cfg.embedBatchSize > 0 {
		ingester = ingester.WithBatchSize(cfg.embedBatchSize)
	}

	docSvc := documentuc.New(docRepo, searchRepo)
	batchSvc := batchuc.New(ingester, docSvc)
	if cfg.maxBatchSize > 0 {
		batchSvc = batchSvc.WithMaxBatchSize(cfg.maxBatchSize)
	}
	searchSvc := searchuc.New(searchRepo, emb)

	q := queue.New(ingester).WithStatusRecorder(docRepo)
	if cfg.queueCapacity > 0 {
		q = q.WithCapacity(cfg.queueCapacity)
	}
	q.Start(context.Background())

	healthSvc := healthuc.New(store, emb).WithQueue(q)
	if index != nil {
		healthSvc = healthSvc.WithVectorIndex(index)
	}

	return &Client{
		store:     store,
		index:     index,
		docSvc:    docSvc,
		batchSvc:  batchSvc,
		searchSvc: searchSvc,
		queue:     q,
		healthSvc: healthSvc,
		obs:       obs,
	}
}

func chunkOptions(cfg *clientConfig) chunker.Options {
	opts := chunker.DefaultOptions()
	if cfg.maxChars > 0 {
		opts.MaxChars = cfg.maxChars
	}
	if cfg.overlapChars > 0 {
		opts.OverlapChars = cfg.overlapChars
	} else if cfg.maxChars > 0 {
		opts.OverlapChars = 0
	}
	if cfg.minChunkChars > 0 {
		opts.MinChunkChars = cfg.minChunkChars
	} else if cfg.maxChars > 0 {
		opts.MinChunkChars = 0
	}
	return opts
}

// Close stops the ingest worker and releases all resources.
// Pending jobs fail with ErrQueueStopped; a running job finishes first.
func (c *Client) Close() {
	if c.queue != nil {
		c.queue.Stop()
	}
	if c.index != nil {
		c.index.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", "", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
