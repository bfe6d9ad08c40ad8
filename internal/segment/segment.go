package segment

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/Mymoliy/echotrace/internal/errors"
	"github.com/Mymoliy/echotrace/internal/model"
)

// ModeWord selects word-segmentation analysis. It is the only mode today;
// the field exists so the option block stays wire-compatible with richer
// analyzers.
const ModeWord = "word"

// DefaultTopN bounds ranked output when the caller does not.
const DefaultTopN = 100

// Options controls a single analysis run.
type Options struct {
	Mode      string `json:"mode"`
	TopN      int    `json:"top_n"`
	MinCount  int    `json:"min_count"`
	MinLength int    `json:"min_length"`
}

func (o Options) normalize() Options {
	if o.Mode == "" {
		o.Mode = ModeWord
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.MinCount <= 0 {
		o.MinCount = 1
	}
	if o.MinLength <= 0 {
		o.MinLength = 1
	}
	return o
}

// Analyzer tokenizes chat text into ranked word counts. The pipeline is the
// bleve CJK chain (unicode tokenizer, width normalization, lowercasing, CJK
// bigrams) with English stopword removal, so mixed Chinese/English chat text
// segments reasonably without a trained dictionary.
type Analyzer struct {
	tokenizer analysis.Tokenizer
	filters   []analysis.TokenFilter
	stopwords map[string]struct{}
}

// New builds an Analyzer. Extra stopwords augment the built-in English list
// and are matched after lowercasing.
func New(stopwords ...string) (*Analyzer, error) {
	cache := registry.NewCache()

	tokenizer, err := cache.TokenizerNamed(unicode.Name)
	if err != nil {
		return nil, errors.AnalyzerFailed(err)
	}

	filters := make([]analysis.TokenFilter, 0, 4)
	for _, name := range []string{cjk.WidthName, lowercase.Name, cjk.BigramName, en.StopName} {
		f, err := cache.TokenFilterNamed(name)
		if err != nil {
			return nil, errors.AnalyzerFailed(err)
		}
		filters = append(filters, f)
	}

	stop := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stop[w] = struct{}{}
		}
	}

	return &Analyzer{tokenizer: tokenizer, filters: filters, stopwords: stop}, nil
}

// FilterTexts drops strings that are not analyzable prose: blanks, XML
// payloads (shared cards, system notices) and bare links.
func (a *Analyzer) FilterTexts(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		s := strings.TrimSpace(t)
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "<?xml") || strings.HasPrefix(s, "<msg") || strings.HasPrefix(s, "<sysmsg") {
			continue
		}
		lower := strings.ToLower(s)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Analyze tokenizes texts and returns word counts ranked by count descending,
// then word ascending, truncated to TopN.
func (a *Analyzer) Analyze(ctx context.Context, texts []string, opts Options) ([]*model.WordCount, error) {
	opts = opts.normalize()
	if opts.Mode != ModeWord {
		return nil, errors.InvalidArg("mode")
	}

	counts := make(map[string]int)
	for _, text := range texts {
		select {
		case <-ctx.Done():
			return nil, errors.AnalyzerFailed(ctx.Err())
		default:
		}

		tokens := a.tokenizer.Tokenize([]byte(text))
		for _, f := range a.filters {
			tokens = f.Filter(tokens)
		}
		for _, tok := range tokens {
			term := string(tok.Term)
			if utf8.RuneCountInString(term) < opts.MinLength {
				continue
			}
			if _, skip := a.stopwords[term]; skip {
				continue
			}
			counts[term]++
		}
	}

	ranked := make([]*model.WordCount, 0, len(counts))
	for word, count := range counts {
		if count < opts.MinCount {
			continue
		}
		ranked = append(ranked, &model.WordCount{Word: word, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count == ranked[j].Count {
			return ranked[i].Word < ranked[j].Word
		}
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > opts.TopN {
		ranked = ranked[:opts.TopN]
	}
	return ranked, nil
}
