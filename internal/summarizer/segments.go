package summarizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSpanWords caps a segment when the caller passes zero.
const DefaultSpanWords = 25

const minSpanWords = 4

// Segments splits text into quotable spans. Terminated sentences shorter than
// maxWords come back as they are. Chunk text has its terminators stripped, so
// an unterminated run is cut where a capitalised word follows a lowercase or
// numeric one, once the current span holds at least four words. No span is
// longer than maxWords words.
func Segments(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultSpanWords
	}
	var out []string
	for _, sent := range Sentences(text) {
		words := strings.Fields(sent)
		terminated := strings.ContainsAny(sent[len(sent)-1:], ".!?")
		if terminated && len(words) <= maxWords {
			out = append(out, sent)
			continue
		}
		start := 0
		for i := 1; i < len(words); i++ {
			n := i - start
			if n >= maxWords || (!terminated && n >= minSpanWords && startsSentence(words[i-1], words[i])) {
				out = append(out, strings.Join(words[start:i], " "))
				start = i
			}
		}
		out = append(out, strings.Join(words[start:], " "))
	}
	return out
}

func startsSentence(prev, word string) bool {
	if word == "I" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(word)
	if !unicode.IsUpper(first) {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(prev)
	return unicode.IsLower(last) || unicode.IsDigit(last)
}
