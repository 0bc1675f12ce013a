// Package prompt renders retrieved chunks into the grounded prompt handed to
// a generator, and parses it back for generators that work offline.
package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

// NotFound is the answer a generator gives when the context does not cover
// the question.
const NotFound = "I cannot find this information in the uploaded documents"

const (
	sectionSeparator = "\n---\n\n"
	contextHeader    = "Context from documents:\n"
	instructions     = "\n\nInstructions:\n" +
		"- Answer based ONLY on the context provided\n" +
		"- If the answer is not in the context, say \"" + NotFound + "\"\n" +
		"- Cite source documents when relevant\n" +
		"- Be concise and accurate"
	questionMarker = "\n\nQuestion: "
	preamble       = "You are an AI assistant analyzing documents. " +
		"Answer questions based on the provided context.\n\n"
)

var sectionHeader = regexp.MustCompile(`(?m)^\[Source (\d+): (.*)\]$`)

// Section is one ranked source recovered from a rendered context.
type Section struct {
	Rank         int
	DocumentName string
	Text         string
}

// Context renders results as numbered source sections in rank order.
func Context(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Source %d: %s]\n%s\n", i+1, r.Chunk.DocumentName, r.Chunk.Text)
	}
	return strings.Join(parts, sectionSeparator)
}

// Build embeds the context and the question into the instruction template.
func Build(context, question string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString(contextHeader)
	b.WriteString(context)
	b.WriteString(instructions)
	b.WriteString(questionMarker)
	b.WriteString(question)
	return b.String()
}

// Parse recovers the context and question from a prompt produced by Build.
func Parse(p string) (context, question string, ok bool) {
	rest, found := strings.CutPrefix(p, preamble+contextHeader)
	if !found {
		return "", "", false
	}
	idx := strings.LastIndex(rest, instructions+questionMarker)
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+len(instructions)+len(questionMarker):], true
}

// Sections recovers the sources of a rendered context. A section starts at a
// "[Source N: name]" line whose rank follows the previous one, so separator
// lines inside chunk text stay part of that chunk.
func Sections(context string) []Section {
	type header struct {
		start, end int
		section    Section
	}
	var heads []header
	for _, m := range sectionHeader.FindAllStringSubmatchIndex(context, -1) {
		rank, err := strconv.Atoi(context[m[2]:m[3]])
		if err != nil || rank != len(heads)+1 {
			continue
		}
		if m[0] != 0 && !strings.HasSuffix(context[:m[0]], sectionSeparator) {
			continue
		}
		heads = append(heads, header{start: m[0], end: m[1], section: Section{Rank: rank, DocumentName: context[m[4]:m[5]]}})
	}
	var out []Section
	for i, h := range heads {
		end := len(context)
		if i+1 < len(heads) {
			end = heads[i+1].start - len(sectionSeparator)
		}
		body := strings.TrimPrefix(context[h.end:end], "\n")
		h.section.Text = strings.TrimSuffix(body, "\n")
		out = append(out, h.section)
	}
	return out
}
