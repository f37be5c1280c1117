package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/eval"
	"github.com/corvelia/finrag/internal/core/ports"
)

// ExampleResult carries everything produced for one evaluation example.
// Err is set when an external call failed for this example; other examples
// are unaffected.
type ExampleResult struct {
	ExampleID string                `json:"example_id"`
	Verdicts  []domain.JudgeVerdict `json:"verdicts"`
	Err       error                 `json:"-"`
}

// EvaluationReport aggregates one full run. Means exclude nil scores:
// skipped and not-applicable verdicts never move an average. Scored carries
// how many verdicts per key actually entered each mean.
type EvaluationReport struct {
	RunID    string             `json:"run_id"`
	Examples int                `json:"examples"`
	Failed   int                `json:"failed"`
	Means    map[string]float64 `json:"means"`
	Scored   map[string]int     `json:"scored"`
	Skipped  map[string]int     `json:"skipped"`
	Results  []ExampleResult    `json:"results"`
}

// EvaluateUseCase scores every gold example with the metric suite and the
// four judges. Examples are independent, so they run with bounded
// parallelism; judge calls share one rate limiter.
type EvaluateUseCase struct {
	store    ports.ExampleStore
	harness  *eval.Harness
	judges   []eval.JudgeSpec
	limiter  *rate.Limiter
	parallel int
	k        int
}

func NewEvaluateUseCase(
	store ports.ExampleStore,
	harness *eval.Harness,
	judgeRPS float64,
	parallel int,
	k int,
) *EvaluateUseCase {
	if judgeRPS <= 0 {
		judgeRPS = 2
	}
	if parallel <= 0 {
		parallel = 4
	}
	if k <= 0 {
		k = domain.DefaultFinalK
	}
	return &EvaluateUseCase{
		store:    store,
		harness:  harness,
		judges:   eval.AllJudges(),
		limiter:  rate.NewLimiter(rate.Limit(judgeRPS), 1),
		parallel: parallel,
		k:        k,
	}
}

func (uc *EvaluateUseCase) EvaluateAll(ctx context.Context) (*EvaluationReport, error) {
	examples, err := uc.store.ListExamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("list evaluation examples: %w", err)
	}

	report := &EvaluationReport{
		RunID:    uuid.NewString(),
		Examples: len(examples),
		Results:  make([]ExampleResult, len(examples)),
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(uc.parallel)
	for i, example := range examples {
		i, example := i, example
		g.Go(func() error {
			report.Results[i] = uc.evaluateExample(groupCtx, example)
			return nil
		})
	}
	// Per-example failures are recorded, never returned, so Wait only sees
	// context cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range report.Results {
		result := &report.Results[i]
		if result.Err != nil {
			report.Failed++
			slog.Warn("evaluation_example_failed", "example_id", result.ExampleID, "error", result.Err)
		}
		if len(result.Verdicts) == 0 {
			continue
		}
		if err := uc.store.SaveVerdicts(ctx, report.RunID, result.ExampleID, result.Verdicts); err != nil {
			slog.Warn("save_verdicts_failed", "example_id", result.ExampleID, "error", err)
		}
	}

	report.Means, report.Scored, report.Skipped = aggregate(report.Results)
	return report, nil
}

func (uc *EvaluateUseCase) evaluateExample(ctx context.Context, example domain.EvaluationExample) ExampleResult {
	result := ExampleResult{ExampleID: example.ID}

	predicted := make([]string, len(example.Retrieved))
	for i, candidate := range example.Retrieved {
		predicted[i] = candidate.ID
	}

	result.Verdicts = append(result.Verdicts,
		eval.RecallAtK(predicted, example.GoldChunkIDs, uc.k),
		eval.MRRAtK(predicted, example.GoldChunkIDs, uc.k),
		eval.MAPAtK(predicted, example.GoldChunkIDs, uc.k),
	)

	for _, spec := range uc.judges {
		if example.Answerable {
			if err := uc.limiter.Wait(ctx); err != nil {
				result.Err = fmt.Errorf("judge rate limit: %w", err)
				return result
			}
		}
		verdict, err := uc.harness.Judge(ctx, spec, example)
		if err != nil {
			result.Err = err
			return result
		}
		result.Verdicts = append(result.Verdicts, verdict)
	}
	return result
}

func aggregate(results []ExampleResult) (map[string]float64, map[string]int, map[string]int) {
	sums := make(map[string]float64)
	scored := make(map[string]int)
	skipped := make(map[string]int)

	for _, result := range results {
		for _, verdict := range result.Verdicts {
			if verdict.Score == nil {
				skipped[verdict.Key]++
				continue
			}
			sums[verdict.Key] += *verdict.Score
			scored[verdict.Key]++
		}
	}

	means := make(map[string]float64, len(sums))
	for key, sum := range sums {
		means[key] = sum / float64(scored[key])
	}
	return means, scored, skipped
}
