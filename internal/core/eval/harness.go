package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
)

const (
	// DefaultMaxJudgeDocs caps how many candidates enter a judge prompt.
	DefaultMaxJudgeDocs = 6
	// DefaultMaxJudgeDocChars caps each candidate snippet.
	DefaultMaxJudgeDocChars = 600
)

const skippedComment = "skipped: example is marked answerable=false"

const responseSchemaInstruction = `Return a strict JSON object with keys:
verdict (boolean), rationale (string, 1-3 sentences), confidence (number from 0 to 1, optional).
No markdown, no extra keys.`

// compactDoc is the bounded rendering of one candidate inside a judge prompt.
type compactDoc struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// JudgeSpec describes one binary judge: its verdict key, the rubric prompt,
// and whether the compacted documents are attached to the verdict extras.
type JudgeSpec struct {
	Key        string
	Build      func(example domain.EvaluationExample, docs []compactDoc) string
	AttachDocs bool
}

// Harness runs the protocol shared by every judge: answerability gate,
// document compaction, structured elicitation, strict parsing, binary score.
type Harness struct {
	model       ports.JudgeModel
	maxDocs     int
	maxDocChars int
}

func NewHarness(model ports.JudgeModel) *Harness {
	return &Harness{
		model:       model,
		maxDocs:     DefaultMaxJudgeDocs,
		maxDocChars: DefaultMaxJudgeDocChars,
	}
}

// Judge produces one verdict. Unanswerable examples are gated to a nil-score
// verdict without any model call. Unparseable model output yields a nil-score
// verdict with the raw output attached; only the external call itself failing
// returns an error.
func (h *Harness) Judge(ctx context.Context, spec JudgeSpec, example domain.EvaluationExample) (domain.JudgeVerdict, error) {
	if !example.Answerable {
		return domain.JudgeVerdict{Key: spec.Key, Comment: skippedComment}, nil
	}

	docs := compactCandidates(example.Retrieved, h.maxDocs, h.maxDocChars)
	prompt := spec.Build(example, docs) + "\n\n" + responseSchemaInstruction

	raw, err := h.model.JudgeJSON(ctx, prompt)
	if err != nil {
		return domain.JudgeVerdict{}, domain.WrapError(domain.ErrExternalCall, "judge "+spec.Key, err)
	}

	parsed, err := parseJudgeResponse(raw)
	if err != nil {
		return domain.JudgeVerdict{
			Key:     spec.Key,
			Comment: "judge output failed schema validation",
			Extra: map[string]any{
				"raw_output": raw,
				"error":      err.Error(),
			},
		}, nil
	}

	score := 0.0
	if *parsed.Verdict {
		score = 1.0
	}

	extra := map[string]any{}
	if parsed.Confidence != nil {
		extra["confidence"] = *parsed.Confidence
	}
	if spec.AttachDocs {
		extra["question_used"] = example.Question
		extra["retrieved_docs"] = docs
	}
	if len(extra) == 0 {
		extra = nil
	}

	return domain.JudgeVerdict{
		Key:     spec.Key,
		Score:   domain.Float64Ptr(score),
		Comment: "rationale: " + parsed.Rationale,
		Extra:   extra,
	}, nil
}

// judgeResponse is the fixed elicitation schema shared by all judges.
type judgeResponse struct {
	Verdict    *bool    `json:"verdict"`
	Rationale  string   `json:"rationale"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func parseJudgeResponse(raw string) (judgeResponse, error) {
	var parsed judgeResponse

	dec := json.NewDecoder(bytes.NewReader([]byte(extractJSONObject(raw))))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&parsed); err != nil {
		return judgeResponse{}, domain.WrapError(domain.ErrJudgeParse, "decode judge response", err)
	}
	if parsed.Verdict == nil {
		return judgeResponse{}, domain.WrapError(domain.ErrJudgeParse, "decode judge response", fmt.Errorf("missing verdict field"))
	}
	if parsed.Confidence != nil && (*parsed.Confidence < 0 || *parsed.Confidence > 1) {
		return judgeResponse{}, domain.WrapError(domain.ErrJudgeParse, "decode judge response", fmt.Errorf("confidence %f out of range", *parsed.Confidence))
	}
	return parsed, nil
}

func compactCandidates(docs []domain.RetrievalCandidate, maxDocs, maxChars int) []compactDoc {
	if maxDocs <= 0 {
		maxDocs = DefaultMaxJudgeDocs
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxJudgeDocChars
	}
	if len(docs) > maxDocs {
		docs = docs[:maxDocs]
	}

	out := make([]compactDoc, 0, len(docs))
	for _, d := range docs {
		out = append(out, compactDoc{ID: d.ID, Score: d.Score, Text: truncateUTF8(d.Content, maxChars)})
	}
	return out
}

// truncateUTF8 cuts text to at most maxBytes without splitting a rune, so the
// snippet stays valid UTF-8 inside the JSON-rendered prompt.
func truncateUTF8(text string, maxBytes int) string {
	if len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func renderDocs(docs []compactDoc) string {
	raw, err := json.Marshal(docs)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
