package features

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"
)

// TextModel is a fitted TF-IDF vectorizer over genre documents: unigram
// tokens, smoothed idf and l2-normalised rows. A model is fitted once per
// batch and may be handed back to the pipeline to featurize another batch
// against the same vocabulary.
type TextModel struct {
	vocabulary []string
	index      map[string]int
	idf        []float64
	docCount   int
}

// FitTextModel learns the vocabulary and idf weights from docs. At most
// maxTerms terms are kept, ranked by document frequency with the corpus
// term count and then the term itself breaking ties. maxTerms <= 0 keeps
// every term.
func FitTextModel(docs []string, maxTerms int) (*TextModel, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents", ErrEmptyVocabulary)
	}

	type stat struct {
		term  string
		df    int
		count int
	}
	stats := make(map[string]*stat)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, tok := range Tokenize(doc) {
			s, ok := stats[tok]
			if !ok {
				s = &stat{term: tok}
				stats[tok] = s
			}
			s.count++
			if !seen[tok] {
				seen[tok] = true
				s.df++
			}
		}
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: %d documents contain no usable terms", ErrEmptyVocabulary, len(docs))
	}

	ranked := make([]*stat, 0, len(stats))
	for _, s := range stats {
		ranked = append(ranked, s)
	}
	slices.SortFunc(ranked, func(a, b *stat) int {
		if c := cmp.Compare(b.df, a.df); c != 0 {
			return c
		}
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return strings.Compare(a.term, b.term)
	})
	if maxTerms > 0 && len(ranked) > maxTerms {
		ranked = ranked[:maxTerms]
	}
	slices.SortFunc(ranked, func(a, b *stat) int {
		return strings.Compare(a.term, b.term)
	})

	n := float64(len(docs))
	m := &TextModel{
		vocabulary: make([]string, len(ranked)),
		index:      make(map[string]int, len(ranked)),
		idf:        make([]float64, len(ranked)),
		docCount:   len(docs),
	}
	for i, s := range ranked {
		m.vocabulary[i] = s.term
		m.index[s.term] = i
		m.idf[i] = math.Log((1+n)/(1+float64(s.df))) + 1
	}
	return m, nil
}

// Transform vectorizes docs against the fitted vocabulary. Terms outside
// the vocabulary are ignored; a document without known terms maps to the
// zero vector.
func (m *TextModel) Transform(docs []string) [][]float64 {
	out := make([][]float64, len(docs))
	for d, doc := range docs {
		row := make([]float64, len(m.vocabulary))
		for _, tok := range Tokenize(doc) {
			if i, ok := m.index[tok]; ok {
				row[i]++
			}
		}
		var norm float64
		for i := range row {
			row[i] *= m.idf[i]
			norm += row[i] * row[i]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for i := range row {
				row[i] /= norm
			}
		}
		out[d] = row
	}
	return out
}

// Vocabulary returns the retained terms in column order.
func (m *TextModel) Vocabulary() []string {
	return slices.Clone(m.vocabulary)
}

func (m *TextModel) idfOf(term string) (float64, bool) {
	i, ok := m.index[term]
	if !ok {
		return 0, false
	}
	return m.idf[i], true
}

// DocCount is the number of documents the model was fitted on.
func (m *TextModel) DocCount() int {
	return m.docCount
}

// Tokenize lower-cases doc and returns every run of two or more word
// characters (letters, numbers, underscore). Punctuation such as list
// brackets, quotes and hyphens separates tokens.
func Tokenize(doc string) []string {
	doc = strings.ToLower(doc)
	var tokens []string
	start := -1
	flush := func(end int) {
		if start >= 0 && len([]rune(doc[start:end])) >= 2 {
			tokens = append(tokens, doc[start:end])
		}
		start = -1
	}
	for i, r := range doc {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(doc))
	return tokens
}
