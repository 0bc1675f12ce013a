package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxSentences bounds a summary when the caller passes zero.
const DefaultMaxSentences = 3

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

// Ranked is a sentence with its score and position in the input.
type Ranked struct {
	Index    int
	Sentence string
	Score    float64
}

// Summarize returns a short summary by ranking sentences using token frequency.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	freq := s.frequencies(sentences)

	scores := make([]Ranked, len(sentences))
	for i, sent := range sentences {
		scores[i] = Ranked{Index: i, Sentence: sent, Score: s.frequencyScore(freq, sent)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	// Keep original order among selected
	selected := scores[:maxSentences]
	sort.Slice(selected, func(i, j int) bool { return selected[i].Index < selected[j].Index })
	out := make([]string, len(selected))
	for i, r := range selected {
		out[i] = r.Sentence
	}
	return strings.Join(out, " "), nil
}

// Rank orders sentences by relevance to question. Token overlap with the
// question dominates; corpus frequency breaks ties between equally
// overlapping sentences. Sentences sharing no token with the question score 0.
func (s *FrequencySummarizer) Rank(question string, sentences []string) []Ranked {
	qset := s.tokenSet(question)
	freq := s.frequencies(sentences)
	out := make([]Ranked, len(sentences))
	for i, sent := range sentences {
		score := s.overlap(qset, sent)
		if score > 0 {
			score += 0.1 * s.frequencyScore(freq, sent)
		}
		out[i] = Ranked{Index: i, Sentence: sent, Score: score}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Sentences splits text into trimmed sentences, keeping their terminators.
func Sentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if t := strings.TrimSpace(r); t != "" && strings.Trim(t, ".!?") != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *FrequencySummarizer) frequencies(sentences []string) map[string]float64 {
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	// Normalize frequencies
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	return freq
}

func (s *FrequencySummarizer) frequencyScore(freq map[string]float64, sent string) float64 {
	toks := s.tokens(sent)
	score := 0.0
	for _, tok := range toks {
		score += freq[tok]
	}
	// Normalize by sentence length to avoid bias
	if l := float64(len(toks)); l > 0 {
		score /= math.Sqrt(l)
	}
	return score
}

// overlap is the Ochiai coefficient |A∩B| / sqrt(|A||B|) over content tokens.
func (s *FrequencySummarizer) overlap(qset map[string]struct{}, text string) float64 {
	seen := s.tokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}

func (s *FrequencySummarizer) tokenSet(text string) map[string]struct{} {
	toks := s.tokens(text)
	m := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		if _, stop := s.stopwords[t]; stop {
			continue
		}
		m[t] = struct{}{}
	}
	return m
}

func (s *FrequencySummarizer) tokens(text string) []string {
	lower := strings.ToLower(text)
	return s.tokenPattern.FindAllString(lower, -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "how", "when", "where", "does", "do", "did", "i", "you", "we", "they",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
