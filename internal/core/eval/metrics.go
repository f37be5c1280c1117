// Package eval implements the offline evaluation suite: rank-sensitive
// retrieval metrics and the LLM-as-judge harness.
package eval

import (
	"fmt"

	"github.com/corvelia/finrag/internal/core/domain"
)

const noGoldComment = "no gold chunks"

// RecallAtK is the fraction of gold ids found in the first k predictions.
// An empty gold set yields a nil score: recall is undefined there, and a
// zero would silently reward systems on unlabeled examples.
func RecallAtK(predictedIDs, goldIDs []string, k int) domain.JudgeVerdict {
	key := fmt.Sprintf("recall@%d", k)
	gold := toIDSet(goldIDs)
	if len(gold) == 0 {
		return domain.JudgeVerdict{Key: key, Comment: noGoldComment}
	}

	hits := 0
	for _, id := range truncate(predictedIDs, k) {
		if _, ok := gold[id]; ok {
			hits++
			delete(gold, id)
		}
	}
	return domain.JudgeVerdict{
		Key:   key,
		Score: domain.Float64Ptr(float64(hits) / float64(len(toIDSet(goldIDs)))),
	}
}

// MRRAtK is 1/rank of the first predicted id (within k) present in gold,
// 0.0 when none hit, nil score when gold is empty.
func MRRAtK(predictedIDs, goldIDs []string, k int) domain.JudgeVerdict {
	key := fmt.Sprintf("mrr@%d", k)
	gold := toIDSet(goldIDs)
	if len(gold) == 0 {
		return domain.JudgeVerdict{Key: key, Comment: noGoldComment}
	}

	for i, id := range truncate(predictedIDs, k) {
		if _, ok := gold[id]; ok {
			return domain.JudgeVerdict{Key: key, Score: domain.Float64Ptr(1.0 / float64(i+1))}
		}
	}
	return domain.JudgeVerdict{Key: key, Score: domain.Float64Ptr(0.0)}
}

// MAPAtK is single-example average precision at cutoff k:
//
//	AP@K = sum(Precision@i * rel(i)) / min(|gold|, k)
//
// The min(|gold|, k) denominator normalizes by the number of relevant
// documents that could possibly fit inside the cutoff, so a perfect top-k
// scores 1.0 regardless of gold-set size. Nil score when gold is empty,
// 0.0 when gold is non-empty but nothing hits in the top k.
func MAPAtK(predictedIDs, goldIDs []string, k int) domain.JudgeVerdict {
	key := fmt.Sprintf("map@%d", k)
	gold := toIDSet(goldIDs)
	if len(gold) == 0 {
		return domain.JudgeVerdict{Key: key, Comment: noGoldComment}
	}

	hits := 0
	sumPrecision := 0.0
	for i, id := range truncate(predictedIDs, k) {
		if _, ok := gold[id]; !ok {
			continue
		}
		hits++
		sumPrecision += float64(hits) / float64(i+1)
		delete(gold, id)
	}

	denom := len(toIDSet(goldIDs))
	if k < denom {
		denom = k
	}
	return domain.JudgeVerdict{
		Key:   key,
		Score: domain.Float64Ptr(sumPrecision / float64(denom)),
	}
}

func truncate(ids []string, k int) []string {
	if k <= 0 || k >= len(ids) {
		return ids
	}
	return ids[:k]
}

func toIDSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}
