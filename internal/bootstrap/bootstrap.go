package bootstrap

import (
	"context"
	"fmt"

	"github.com/corvelia/finrag/internal/config"
	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/eval"
	"github.com/corvelia/finrag/internal/core/metadata"
	"github.com/corvelia/finrag/internal/core/ports"
	"github.com/corvelia/finrag/internal/core/usecase"
	"github.com/corvelia/finrag/internal/infrastructure/llm/ollama"
	"github.com/corvelia/finrag/internal/infrastructure/queue/nats"
	"github.com/corvelia/finrag/internal/infrastructure/repository/postgres"
	"github.com/corvelia/finrag/internal/infrastructure/rerank/tei"
	"github.com/corvelia/finrag/internal/infrastructure/resilience"
	"github.com/corvelia/finrag/internal/infrastructure/storage/localfs"
	"github.com/corvelia/finrag/internal/infrastructure/vector/qdrant"
)

// App wires every adapter behind the core ports. All three binaries (api,
// worker, eval) build the same graph and use the slices they need.
type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Examples   *postgres.ExampleRepository
	SubmitUC   ports.ChunkSubmitter
	IngestUC   ports.ChunkIngestor
	RetrieveUC ports.Retriever
	EvaluateUC *usecase.EvaluateUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	examples := postgres.NewExampleRepository(db)
	if err := examples.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init batch storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	companies := metadata.DefaultCompanyTable()
	if cfg.CompanyTablePath != "" {
		companies, err = metadata.LoadCompanyTable(cfg.CompanyTablePath)
		if err != nil {
			return nil, fmt.Errorf("load company table: %w", err)
		}
	}
	extractor := metadata.NewExtractor(companies, cfg.MeetingNoteAuthor)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	judgeModel := ollama.NewJudge(ollamaClient)

	schema := qdrant.Schema{
		VectorSize:      cfg.VectorSize,
		HNSWM:           cfg.HNSWM,
		HNSWEfConstruct: cfg.HNSWEfConstruct,
	}
	router := qdrant.NewRouter(map[domain.DocType]*qdrant.Collection{
		domain.DocTypeEarningsCall: qdrant.NewCollection(cfg.QdrantURL, cfg.QdrantEarningsCollection, schema),
		domain.DocTypeMeetingNote:  qdrant.NewCollection(cfg.QdrantURL, cfg.QdrantMeetingCollection, schema),
	})

	reranker := tei.New(cfg.RerankURL)

	submitUC := usecase.NewSubmitChunksUseCase(storage, queue)
	ingestUC := usecase.NewIngestChunksUseCase(storage, extractor, embedder, router)
	retrieveUC := usecase.NewRetrieveUseCase(embedder, router, reranker, usecase.RetrievalTuning{
		CandidateWidth: cfg.RetrievalCandidates,
		FinalK:         cfg.RetrievalFinalK,
		RRFK:           cfg.FusionRRFK,
	})
	evaluateUC := usecase.NewEvaluateUseCase(
		examples,
		eval.NewHarness(judgeModel),
		cfg.EvalJudgeRPS,
		cfg.EvalParallelism,
		cfg.EvalK,
	)

	return &App{
		Config:     cfg,
		Queue:      queue,
		Examples:   examples,
		SubmitUC:   submitUC,
		IngestUC:   ingestUC,
		RetrieveUC: retrieveUC,
		EvaluateUC: evaluateUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
