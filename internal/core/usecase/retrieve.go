package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
)

const defaultRRFK = 60

// RetrievalTuning carries the operator-set retrieval widths. Zero values fall
// back to the domain defaults, so the zero struct is a valid configuration.
type RetrievalTuning struct {
	CandidateWidth int
	FinalK         int
	RRFK           int
}

// RetrieveUseCase runs two-stage retrieval: broad hybrid recall over the
// routed indexes, then cross-encoder reranking down to the final working set.
// State-free per call.
type RetrieveUseCase struct {
	embedder ports.Embedder
	router   ports.IndexRouter
	reranker ports.Reranker
	tuning   RetrievalTuning
}

func NewRetrieveUseCase(
	embedder ports.Embedder,
	router ports.IndexRouter,
	reranker ports.Reranker,
	tuning RetrievalTuning,
) *RetrieveUseCase {
	if tuning.CandidateWidth <= 0 {
		tuning.CandidateWidth = domain.DefaultCandidateWidth
	}
	if tuning.FinalK <= 0 {
		tuning.FinalK = domain.DefaultFinalK
	}
	if tuning.RRFK <= 0 {
		tuning.RRFK = defaultRRFK
	}
	return &RetrieveUseCase{
		embedder: embedder,
		router:   router,
		reranker: reranker,
		tuning:   tuning,
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, req domain.RetrievalRequest) ([]domain.RetrievalCandidate, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty query"))
	}
	if req.KCandidates <= 0 {
		req.KCandidates = uc.tuning.CandidateWidth
	}
	if req.KFinal <= 0 {
		req.KFinal = uc.tuning.FinalK
	}

	candidates, err := uc.recallStage(ctx, req)
	if err != nil {
		return nil, err
	}
	// Zero recall is a valid outcome, never an error.
	if len(candidates) == 0 {
		return []domain.RetrievalCandidate{}, nil
	}

	return uc.rerankStage(ctx, req.Query, candidates, req.KFinal)
}

// recallStage embeds the query, runs dense and lexical searches over every
// requested index, and fuses the lists into one combined ranking of width
// KCandidates.
func (uc *RetrieveUseCase) recallStage(ctx context.Context, req domain.RetrievalRequest) ([]domain.RetrievalCandidate, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docTypes := req.DocTypes
	if len(docTypes) == 0 {
		docTypes = uc.router.Types()
	}

	var dense, lexical []domain.RetrievalCandidate
	for _, docType := range docTypes {
		index, err := uc.router.Resolve(docType)
		if err != nil {
			return nil, fmt.Errorf("resolve index: %w", err)
		}

		semantic, err := index.Search(ctx, queryVector, req.KCandidates)
		if err != nil {
			return nil, fmt.Errorf("vector search %s: %w", docType, err)
		}
		dense = append(dense, semantic...)

		keyword, err := index.SearchLexical(ctx, req.Query, req.KCandidates)
		if err != nil {
			return nil, fmt.Errorf("lexical search %s: %w", docType, err)
		}
		lexical = append(lexical, keyword...)
	}

	fused := fuseCandidatesRRF(dense, lexical, uc.tuning.RRFK)
	return trimCandidates(fused, req.KCandidates), nil
}

// rerankStage scores every scorable candidate against the query with the
// cross-encoder and emits the top kFinal, stable on stage-1 order for ties.
// Blank candidates cannot be scored meaningfully and are dropped up front.
func (uc *RetrieveUseCase) rerankStage(ctx context.Context, query string, candidates []domain.RetrievalCandidate, kFinal int) ([]domain.RetrievalCandidate, error) {
	scorable := make([]domain.RetrievalCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.Content) == "" {
			continue
		}
		scorable = append(scorable, candidate)
	}
	if len(scorable) == 0 {
		return []domain.RetrievalCandidate{}, nil
	}

	passages := make([]string, len(scorable))
	for i, candidate := range scorable {
		passages[i] = candidate.Content
	}

	scores, err := uc.reranker.Score(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder score: %w", err)
	}
	if len(scores) != len(scorable) {
		return nil, domain.WrapError(
			domain.ErrExternalCall,
			"cross-encoder score",
			fmt.Errorf("scores/passages mismatch: %d/%d", len(scores), len(scorable)),
		)
	}

	for i := range scorable {
		scorable[i].Score = scores[i]
	}

	sort.SliceStable(scorable, func(i, j int) bool {
		return scorable[i].Score > scorable[j].Score
	})

	if kFinal < len(scorable) {
		scorable = scorable[:kFinal]
	}
	return scorable, nil
}
