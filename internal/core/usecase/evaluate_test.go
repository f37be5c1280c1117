package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/eval"
)

type exampleStoreFake struct {
	mu       sync.Mutex
	examples []domain.EvaluationExample
	listErr  error
	saved    map[string][]domain.JudgeVerdict
}

func (f *exampleStoreFake) ListExamples(context.Context) ([]domain.EvaluationExample, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.examples, nil
}

func (f *exampleStoreFake) SaveVerdicts(_ context.Context, _, exampleID string, verdicts []domain.JudgeVerdict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string][]domain.JudgeVerdict{}
	}
	f.saved[exampleID] = verdicts
	return nil
}

type evalModelFake struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (f *evalModelFake) JudgeJSON(context.Context, string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func goldExample(id string, answerable bool) domain.EvaluationExample {
	return domain.EvaluationExample{
		ID:       id,
		Question: "what was revenue",
		Retrieved: []domain.RetrievalCandidate{
			{ID: "gold-1", Content: "revenue was up"},
			{ID: "other", Content: "weather report"},
		},
		Answer:          "revenue was up",
		GoldChunkIDs:    []string{"gold-1"},
		Answerable:      answerable,
		ReferenceAnswer: "revenue was up",
	}
}

func TestEvaluateAllProducesSevenVerdictsPerExample(t *testing.T) {
	store := &exampleStoreFake{examples: []domain.EvaluationExample{goldExample("ex-1", true)}}
	model := &evalModelFake{response: `{"verdict": true, "rationale": "ok"}`}
	uc := NewEvaluateUseCase(store, eval.NewHarness(model), 1000, 2, 6)

	report, err := uc.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("EvaluateAll() error = %v", err)
	}
	if report.Examples != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report counters: %+v", report)
	}
	if got := len(report.Results[0].Verdicts); got != 7 {
		t.Fatalf("expected 3 metrics + 4 judges, got %d", got)
	}
	if len(store.saved["ex-1"]) != 7 {
		t.Fatalf("verdicts must be persisted, got %d", len(store.saved["ex-1"]))
	}
	if model.calls != 4 {
		t.Fatalf("expected 4 judge calls, got %d", model.calls)
	}
}

func TestEvaluateAllSkipsUnanswerableWithoutModelCalls(t *testing.T) {
	store := &exampleStoreFake{examples: []domain.EvaluationExample{goldExample("ex-1", false)}}
	model := &evalModelFake{response: `{"verdict": true, "rationale": "ok"}`}
	uc := NewEvaluateUseCase(store, eval.NewHarness(model), 1000, 2, 6)

	report, err := uc.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("EvaluateAll() error = %v", err)
	}
	if model.calls != 0 {
		t.Fatalf("unanswerable example must not trigger judge calls, got %d", model.calls)
	}
	for _, key := range []string{eval.KeyRetrievalRelevance, eval.KeyAnswerCorrectness} {
		if report.Skipped[key] != 1 {
			t.Fatalf("expected %s counted as skipped, got %+v", key, report.Skipped)
		}
	}
	// Metrics still apply: the gold set is non-empty.
	if _, ok := report.Means["recall@6"]; !ok {
		t.Fatalf("metrics must still be aggregated, got %+v", report.Means)
	}
}

func TestEvaluateAllIsolatesExternalFailures(t *testing.T) {
	store := &exampleStoreFake{examples: []domain.EvaluationExample{
		goldExample("ex-broken", true),
		goldExample("ex-skipped", false),
	}}
	model := &evalModelFake{err: errors.New("llm down")}
	uc := NewEvaluateUseCase(store, eval.NewHarness(model), 1000, 1, 6)

	report, err := uc.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("per-example failures must not abort the run, got %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected 1 failed example, got %d", report.Failed)
	}
	// The unanswerable example still produced its gated verdicts.
	var skippedResult *ExampleResult
	for i := range report.Results {
		if report.Results[i].ExampleID == "ex-skipped" {
			skippedResult = &report.Results[i]
		}
	}
	if skippedResult == nil || len(skippedResult.Verdicts) != 7 {
		t.Fatalf("unaffected example must complete, got %+v", skippedResult)
	}
}

func TestEvaluateAllMeanAggregation(t *testing.T) {
	first := goldExample("ex-1", true)
	second := goldExample("ex-2", true)
	// Second example retrieves nothing relevant.
	second.Retrieved = []domain.RetrievalCandidate{{ID: "miss", Content: "noise"}}

	store := &exampleStoreFake{examples: []domain.EvaluationExample{first, second}}
	model := &evalModelFake{response: `{"verdict": true, "rationale": "ok"}`}
	uc := NewEvaluateUseCase(store, eval.NewHarness(model), 1000, 2, 6)

	report, err := uc.EvaluateAll(context.Background())
	if err != nil {
		t.Fatalf("EvaluateAll() error = %v", err)
	}
	if got := report.Means["recall@6"]; got != 0.5 {
		t.Fatalf("expected mean recall 0.5, got %f", got)
	}
	if got := report.Means[eval.KeyRetrievalRelevance]; got != 1.0 {
		t.Fatalf("expected mean judge score 1.0, got %f", got)
	}
	if got := report.Scored["recall@6"]; got != 2 {
		t.Fatalf("report must carry how many verdicts entered the mean, got %d", got)
	}
	if got := report.Scored[eval.KeyRetrievalRelevance]; got != 2 {
		t.Fatalf("expected 2 scored judge verdicts, got %d", got)
	}
}
