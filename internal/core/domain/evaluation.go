package domain

// EvaluationExample is one labeled test case from the gold dataset.
// Read-only to the engine.
type EvaluationExample struct {
	ID              string               `json:"id"`
	Question        string               `json:"question"`
	Retrieved       []RetrievalCandidate `json:"retrieved"`
	Answer          string               `json:"answer"`
	GoldChunkIDs    []string             `json:"gold_chunk_ids"`
	Answerable      bool                 `json:"answerable"`
	ReferenceAnswer string               `json:"reference_answer"`
}

// JudgeVerdict is the uniform output contract of every metric and judge.
// A nil Score means "not applicable" (empty gold set, unanswerable example,
// unparseable judge output) and is distinct from a failing 0.0.
type JudgeVerdict struct {
	Key     string         `json:"key"`
	Score   *float64       `json:"score"`
	Comment string         `json:"comment,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

func Float64Ptr(v float64) *float64 { return &v }
