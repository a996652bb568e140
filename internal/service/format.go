package service

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/kbase/internal/model"
)

// FormatMatches renders search hits as the markdown answer handed to the
// client. Order is preserved from the search result.
func FormatMatches(matches []model.SearchMatch) string {
	if len(matches) == 0 {
		return "No relevant documents found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d relevant documents:\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&sb, "\n## Result %d (relevance: %.1f%%)\n", i+1, m.Score*100)
		fmt.Fprintf(&sb, "**File:** %s\n", m.FilePath)
		fmt.Fprintf(&sb, "**Topic:** %s | **Folder:** %s\n", m.Topic, m.Folder)
		if heading := sectionHeading(m.Text); heading != "" {
			fmt.Fprintf(&sb, "**Section:** %s\n", heading)
		}
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(m.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}

// sectionHeading returns the first markdown heading inside a chunk, giving
// the reader the section the match came from. Empty when the chunk carries no
// heading.
func sectionHeading(chunk string) string {
	src := []byte(chunk)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok {
			return strings.TrimSpace(string(h.Text(src)))
		}
	}
	return ""
}
