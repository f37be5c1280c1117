package usecase

import (
	"sort"

	"github.com/corvelia/finrag/internal/core/domain"
)

type fusedCandidate struct {
	candidate domain.RetrievalCandidate
	score     float64
}

// fuseCandidatesRRF merges the dense and lexical result lists with
// reciprocal-rank fusion. Ids are content-addressed, so the same chunk
// surfacing in both lists accumulates both rank contributions. Ordering is
// deterministic: score descending, then id ascending.
func fuseCandidatesRRF(dense, lexical []domain.RetrievalCandidate, rrfK int) []domain.RetrievalCandidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]fusedCandidate, len(dense)+len(lexical))
	addList := func(list []domain.RetrievalCandidate) {
		for rank, candidate := range list {
			entry := acc[candidate.ID]
			if entry.candidate.ID == "" {
				entry.candidate = candidate
			} else if entry.candidate.Content == "" && candidate.Content != "" {
				entry.candidate.Content = candidate.Content
			}
			entry.score += 1.0 / float64(rrfK+rank+1)
			acc[candidate.ID] = entry
		}
	}

	addList(dense)
	addList(lexical)

	out := make([]domain.RetrievalCandidate, 0, len(acc))
	for _, entry := range acc {
		candidate := entry.candidate
		candidate.Score = entry.score
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func trimCandidates(candidates []domain.RetrievalCandidate, limit int) []domain.RetrievalCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
