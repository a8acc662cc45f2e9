package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// rrfRankConstant dampens the contribution of lower ranks in reciprocal rank
// fusion. 60 is the constant from the original RRF paper.
const rrfRankConstant = 60

// EnsembleRetriever fuses the rankings of several sub-retrievers with
// weighted reciprocal rank fusion. Each sub-retriever is asked for the full
// top-k, a document at 1-based rank r contributes weight/(r+60) to its fused
// score, and duplicates across retrievers are merged by document ID.
//
// Ties are broken by the document's rank in the first retriever (the lexical
// one in the standard wiring), then by ID, so results are deterministic.
type EnsembleRetriever struct {
	retrievers []Retriever
	weights    []float64
}

// NewEnsembleRetriever combines retrievers with per-retriever weights.
// weights[i] scales the rank contribution of retrievers[i].
func NewEnsembleRetriever(retrievers []Retriever, weights []float64) (*EnsembleRetriever, error) {
	if len(retrievers) == 0 {
		return nil, fmt.Errorf("rag: ensemble needs at least one retriever")
	}
	if len(weights) != len(retrievers) {
		return nil, fmt.Errorf("rag: ensemble got %d retrievers but %d weights", len(retrievers), len(weights))
	}
	for i, r := range retrievers {
		if r == nil {
			return nil, fmt.Errorf("rag: ensemble retriever %d is nil", i)
		}
	}
	return &EnsembleRetriever{retrievers: retrievers, weights: weights}, nil
}

// Retrieve queries every sub-retriever for topK documents, fuses the result
// lists and returns the topK best by fused score. Any sub-retriever error is
// returned as-is; there is no partial fallback.
func (r *EnsembleRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	if topK <= 0 {
		topK = 10
	}

	type candidate struct {
		doc         Document
		score       float64
		primaryRank int
	}

	candidates := make(map[string]*candidate)
	for i, ret := range r.retrievers {
		docs, err := ret.Retrieve(ctx, query, topK)
		if err != nil {
			return nil, fmt.Errorf("rag: ensemble sub-retriever %d: %w", i, err)
		}

		for rank, doc := range docs {
			c, ok := candidates[doc.ID]
			if !ok {
				c = &candidate{doc: doc, primaryRank: math.MaxInt}
				candidates[doc.ID] = c
			}
			c.score += r.weights[i] / float64(rank+1+rrfRankConstant)
			if i == 0 {
				c.primaryRank = rank
			}
		}
	}

	fused := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		fused = append(fused, c)
	}
	sort.Slice(fused, func(a, b int) bool {
		if fused[a].score != fused[b].score {
			return fused[a].score > fused[b].score
		}
		if fused[a].primaryRank != fused[b].primaryRank {
			return fused[a].primaryRank < fused[b].primaryRank
		}
		return fused[a].doc.ID < fused[b].doc.ID
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}

	docs := make([]Document, 0, len(fused))
	for _, c := range fused {
		doc := c.doc
		doc.Score = float32(c.score)
		docs = append(docs, doc)
	}

	return docs, nil
}
