package rag

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Okapi BM25 parameters, standard values.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25Retriever is an in-memory lexical retriever scoring documents with
// Okapi BM25. The index is rebuilt from the chunk catalog at startup and
// after each ingestion, so it never persists anything itself. Rebuild swaps
// the index atomically and may run concurrently with Retrieve.
type BM25Retriever struct {
	mu    sync.RWMutex
	index *bm25Index
}

// bm25Index is an immutable snapshot of the inverted index. A new one is
// built on every Rebuild and swapped in under the write lock.
type bm25Index struct {
	// docs holds the indexed documents, position is the internal doc number.
	docs []Document

	// postings maps a term to the documents containing it with term frequency.
	postings map[string][]bm25Posting

	// docLen is the token count per document.
	docLen []int

	// avgDocLen is the mean token count across all documents.
	avgDocLen float64
}

// bm25Posting records one document containing a term.
type bm25Posting struct {
	doc int
	tf  int
}

// NewBM25Retriever builds an index over the given documents. An empty or nil
// slice yields a retriever that returns no results until Rebuild is called.
func NewBM25Retriever(docs []Document) *BM25Retriever {
	r := &BM25Retriever{}
	r.Rebuild(docs)
	return r
}

// Rebuild replaces the index with one built from docs. Searches running
// concurrently keep using the old snapshot until the swap.
func (r *BM25Retriever) Rebuild(docs []Document) {
	idx := &bm25Index{
		docs:     make([]Document, len(docs)),
		postings: make(map[string][]bm25Posting),
		docLen:   make([]int, len(docs)),
	}
	copy(idx.docs, docs)

	var totalLen int
	for i, doc := range docs {
		tokens := tokenize(doc.Content)
		idx.docLen[i] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, n := range tf {
			idx.postings[term] = append(idx.postings[term], bm25Posting{doc: i, tf: n})
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}

	r.mu.Lock()
	r.index = idx
	r.mu.Unlock()
}

// Len returns the number of indexed documents.
func (r *BM25Retriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.index == nil {
		return 0
	}
	return len(r.index.docs)
}

// Retrieve scores all indexed documents against the query terms and returns
// the top-k by descending BM25 score. An empty index returns no documents
// and no error, so a corpus that was never ingested degrades quietly.
func (r *BM25Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	r.mu.RLock()
	idx := r.index
	r.mu.RUnlock()

	if idx == nil || len(idx.docs) == 0 || topK <= 0 {
		return nil, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	n := float64(len(idx.docs))
	scores := make(map[int]float64)
	for _, term := range terms {
		postings, ok := idx.postings[term]
		if !ok {
			continue
		}

		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range postings {
			tf := float64(p.tf)
			norm := 1 - bm25B + bm25B*float64(idx.docLen[p.doc])/idx.avgDocLen
			scores[p.doc] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}

	ranked := make([]int, 0, len(scores))
	for doc := range scores {
		ranked = append(ranked, doc)
	}
	sort.Slice(ranked, func(a, b int) bool {
		if scores[ranked[a]] != scores[ranked[b]] {
			return scores[ranked[a]] > scores[ranked[b]]
		}
		return ranked[a] < ranked[b]
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	docs := make([]Document, 0, len(ranked))
	for _, d := range ranked {
		doc := idx.docs[d]
		doc.Score = float32(scores[d])
		docs = append(docs, doc)
	}

	return docs, nil
}

// tokenize lowercases text and splits it on any non-alphanumeric rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
