package eval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/corvelia/finrag/internal/core/domain"
)

type judgeModelFake struct {
	calls    int
	response string
	err      error
	prompt   string
}

func (f *judgeModelFake) JudgeJSON(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func answerableExample() domain.EvaluationExample {
	return domain.EvaluationExample{
		ID:       "ex-1",
		Question: "What was Apple's Q2 revenue?",
		Retrieved: []domain.RetrievalCandidate{
			{ID: "c-1", Content: "Revenue was $90B.", Score: 0.9},
		},
		Answer:          "Revenue was $90B.",
		GoldChunkIDs:    []string{"c-1"},
		Answerable:      true,
		ReferenceAnswer: "$90B",
	}
}

func TestHarnessGateSkipsUnanswerable(t *testing.T) {
	model := &judgeModelFake{response: `{"verdict": true, "rationale": "ok"}`}
	h := NewHarness(model)

	example := answerableExample()
	example.Answerable = false

	for _, spec := range AllJudges() {
		verdict, err := h.Judge(context.Background(), spec, example)
		if err != nil {
			t.Fatalf("%s: Judge() error = %v", spec.Key, err)
		}
		if verdict.Score != nil {
			t.Fatalf("%s: expected nil score, got %f", spec.Key, *verdict.Score)
		}
		if !strings.Contains(verdict.Comment, "skipped") {
			t.Fatalf("%s: expected skip comment, got %q", spec.Key, verdict.Comment)
		}
	}
	if model.calls != 0 {
		t.Fatalf("gate must prevent model calls, saw %d", model.calls)
	}
}

func TestHarnessPositiveVerdict(t *testing.T) {
	model := &judgeModelFake{response: `{"verdict": true, "rationale": "documents match", "confidence": 0.8}`}
	h := NewHarness(model)

	verdict, err := h.Judge(context.Background(), RetrievalRelevanceJudge(), answerableExample())
	if err != nil {
		t.Fatalf("Judge() error = %v", err)
	}
	if verdict.Score == nil || *verdict.Score != 1.0 {
		t.Fatalf("expected score 1.0, got %v", verdict.Score)
	}
	if !strings.Contains(verdict.Comment, "documents match") {
		t.Fatalf("expected rationale in comment, got %q", verdict.Comment)
	}
	if verdict.Extra["confidence"] != 0.8 {
		t.Fatalf("expected confidence in extra, got %v", verdict.Extra)
	}
	if _, ok := verdict.Extra["retrieved_docs"]; !ok {
		t.Fatalf("retrieval judge must attach documents to extra")
	}
}

func TestHarnessNegativeVerdict(t *testing.T) {
	model := &judgeModelFake{response: `{"verdict": false, "rationale": "off-topic"}`}
	h := NewHarness(model)

	verdict, err := h.Judge(context.Background(), AnswerRelevanceJudge(), answerableExample())
	if err != nil {
		t.Fatalf("Judge() error = %v", err)
	}
	if verdict.Score == nil || *verdict.Score != 0.0 {
		t.Fatalf("expected score 0.0, got %v", verdict.Score)
	}
}

func TestHarnessParseFailureYieldsNilScore(t *testing.T) {
	cases := map[string]string{
		"missing verdict": `{"rationale": "no decision"}`,
		"unknown keys":    `{"verdict": true, "rationale": "x", "reasoning": "extra"}`,
		"bad confidence":  `{"verdict": true, "rationale": "x", "confidence": 3.5}`,
		"not json":        `the documents look fine to me`,
	}
	for name, raw := range cases {
		model := &judgeModelFake{response: raw}
		h := NewHarness(model)

		verdict, err := h.Judge(context.Background(), AnswerCorrectnessJudge(), answerableExample())
		if err != nil {
			t.Fatalf("%s: parse failures must not error the call, got %v", name, err)
		}
		if verdict.Score != nil {
			t.Fatalf("%s: expected nil score, got %f", name, *verdict.Score)
		}
		if verdict.Extra["raw_output"] != raw {
			t.Fatalf("%s: raw output must be attached, got %v", name, verdict.Extra)
		}
	}
}

func TestHarnessWrapsJSONInProse(t *testing.T) {
	model := &judgeModelFake{response: "Here you go:\n{\"verdict\": true, \"rationale\": \"fine\"}\nDone."}
	h := NewHarness(model)

	verdict, err := h.Judge(context.Background(), AnswerFaithfulnessJudge(), answerableExample())
	if err != nil {
		t.Fatalf("Judge() error = %v", err)
	}
	if verdict.Score == nil || *verdict.Score != 1.0 {
		t.Fatalf("expected score 1.0 from embedded JSON, got %v", verdict.Score)
	}
}

func TestHarnessExternalFailurePropagates(t *testing.T) {
	model := &judgeModelFake{err: errors.New("connection refused")}
	h := NewHarness(model)

	_, err := h.Judge(context.Background(), AnswerRelevanceJudge(), answerableExample())
	if !domain.IsKind(err, domain.ErrExternalCall) {
		t.Fatalf("expected ErrExternalCall, got %v", err)
	}
}

func TestCompactCandidatesBounds(t *testing.T) {
	long := strings.Repeat("x", 2000)
	docs := make([]domain.RetrievalCandidate, 10)
	for i := range docs {
		docs[i] = domain.RetrievalCandidate{ID: "c", Content: long}
	}

	compact := compactCandidates(docs, DefaultMaxJudgeDocs, DefaultMaxJudgeDocChars)
	if len(compact) != DefaultMaxJudgeDocs {
		t.Fatalf("expected %d docs, got %d", DefaultMaxJudgeDocs, len(compact))
	}
	for _, d := range compact {
		if len(d.Text) != DefaultMaxJudgeDocChars {
			t.Fatalf("expected %d chars, got %d", DefaultMaxJudgeDocChars, len(d.Text))
		}
	}
}

func TestCompactCandidatesKeepsValidUTF8(t *testing.T) {
	// 3-byte runes offset by one ASCII byte so the budget lands mid-rune.
	content := "a" + strings.Repeat("€", 400)
	docs := []domain.RetrievalCandidate{{ID: "c", Content: content}}

	compact := compactCandidates(docs, DefaultMaxJudgeDocs, DefaultMaxJudgeDocChars)
	text := compact[0].Text
	if len(text) > DefaultMaxJudgeDocChars {
		t.Fatalf("snippet exceeds budget: %d bytes", len(text))
	}
	if !utf8.ValidString(text) {
		t.Fatalf("truncation must not split a rune")
	}
	if !strings.HasSuffix(text, "€") {
		t.Fatalf("expected a whole trailing rune, got %q", text[len(text)-4:])
	}
}

func TestJudgePromptCarriesQuestion(t *testing.T) {
	model := &judgeModelFake{response: `{"verdict": true, "rationale": "ok"}`}
	h := NewHarness(model)

	example := answerableExample()
	if _, err := h.Judge(context.Background(), RetrievalRelevanceJudge(), example); err != nil {
		t.Fatalf("Judge() error = %v", err)
	}
	if !strings.Contains(model.prompt, example.Question) {
		t.Fatalf("prompt must contain the question")
	}
	if !strings.Contains(model.prompt, "strict JSON object") {
		t.Fatalf("prompt must carry the response schema instruction")
	}
}
