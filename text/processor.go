package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxTokenChars  = 24
	maxDigitLength = 4
)

var footnoteRef = regexp.MustCompile(`^\[\d+\]$`)

const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
const cjkPunct = "。，、：？！；"

// Processor implements the document/query token pipeline: segment,
// lowercase, filter, lemmatize, then emit unigrams plus
// stopword-filtered bigrams. A single Processor is shared across all
// figures — it is stateless aside from the loaded stopword set and
// the underlying segmenter, both fixed at construction.
type Processor struct {
	seg       Segmenter
	closer    interface{ Close() }
	stopwords map[string]struct{}
}

// NewProcessor constructs a Processor backed by gojieba, loading
// stopwords from every *.txt file under stopwordsDir.
func NewProcessor(stopwordsDir string) *Processor {
	seg := newJiebaSegmenter()
	return &Processor{
		seg:       seg,
		closer:    seg,
		stopwords: loadStopwords(stopwordsDir),
	}
}

// NewProcessorWithSegmenter builds a Processor around a caller-supplied
// Segmenter, letting tests substitute a deterministic fake instead of
// loading jieba's dictionary files.
func NewProcessorWithSegmenter(seg Segmenter, stopwords map[string]struct{}) *Processor {
	if stopwords == nil {
		stopwords = make(map[string]struct{})
	}
	return &Processor{seg: seg, stopwords: stopwords}
}

// Close releases the underlying segmenter's native resources, if any.
func (p *Processor) Close() {
	if p.closer != nil {
		p.closer.Close()
	}
}

// StopwordCount reports how many stopwords were loaded, for startup
// logging.
func (p *Processor) StopwordCount() int { return len(p.stopwords) }

// SegmentText splits text into trimmed, non-empty tokens.
func (p *Processor) SegmentText(text string) []string {
	return segmentText(p.seg, text)
}

// LemmatizeTokens lower-cases, filters, and lemmatizes a token stream.
// Chinese and other non-ASCII-alphabetic tokens pass through
// unchanged except for the shared filters.
func (p *Processor) LemmatizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, raw := range tokens {
		tok := strings.ToLower(raw)

		if tok == "" || strings.TrimSpace(tok) == "" {
			continue
		}
		if isPurePunctuation(tok) {
			continue
		}
		if utf8.RuneCountInString(tok) > maxTokenChars {
			continue
		}
		if footnoteRef.MatchString(tok) {
			continue
		}
		if isAllDigits(tok) && utf8.RuneCountInString(tok) > maxDigitLength {
			continue
		}
		if isSingleASCIILetter(tok) {
			continue
		}

		if isAlpha(tok) {
			if isASCII(tok) {
				out = append(out, lemmatize(tok))
			} else {
				out = append(out, tok)
			}
			continue
		}

		if hasAlnum(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// GenerateNgrams emits n-grams of size n from tokens, joining
// components with "_". When filterStopwords is true, any n-gram with
// a stopword component is dropped — the only place stopword filtering
// applies to bigrams (unigrams themselves are never stopword-filtered
// at emission time).
func (p *Processor) GenerateNgrams(tokens []string, n int, filterStopwords bool) []string {
	if len(tokens) < n {
		return nil
	}
	ngrams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		components := tokens[i : i+n]
		if filterStopwords {
			skip := false
			for _, c := range components {
				if isStopword(p.stopwords, c) {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
		}
		ngrams = append(ngrams, strings.Join(components, "_"))
	}
	return ngrams
}

// ProcessText runs the full pipeline and returns unigrams followed by
// bigrams (or whatever range [minN, maxN] specifies).
func (p *Processor) ProcessText(text string, minN, maxN int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := p.SegmentText(text)
	unigrams := p.LemmatizeTokens(tokens)

	var result []string
	for n := minN; n <= maxN; n++ {
		if n == 1 {
			result = append(result, unigrams...)
		} else if len(unigrams) >= n {
			result = append(result, p.GenerateNgrams(unigrams, n, true)...)
		}
	}
	return result
}

// ProcessQuery processes a search query with the identical pipeline
// used for documents, so query and document token spaces align.
func (p *Processor) ProcessQuery(query string, minN, maxN int) []string {
	return p.ProcessText(query, minN, maxN)
}

// IsStopword reports whether word is in the loaded stopword set,
// exposed for callers that need to filter terms the same way
// (e.g. the BM25 top_matching_words display filter).
func (p *Processor) IsStopword(word string) bool {
	return isStopword(p.stopwords, word)
}

func isPurePunctuation(tok string) bool {
	found := false
	for _, r := range tok {
		if strings.ContainsRune(asciiPunct, r) || strings.ContainsRune(cjkPunct, r) {
			found = true
			continue
		}
		return false
	}
	return found
}

func isAllDigits(tok string) bool {
	found := false
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
		found = true
	}
	return found
}

func isSingleASCIILetter(tok string) bool {
	if utf8.RuneCountInString(tok) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(tok)
	return r < utf8.RuneSelf && unicode.IsLetter(r)
}

func isAlpha(tok string) bool {
	found := false
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
		found = true
	}
	return found
}

func isASCII(tok string) bool {
	for _, r := range tok {
		if r >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func hasAlnum(tok string) bool {
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
