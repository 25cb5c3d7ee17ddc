// Package mindmap projects markdown note content onto a node/edge tree.
package mindmap

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Kind classifies one line of note content.
type Kind string

const (
	KindBlank     Kind = "blank"
	KindSeparator Kind = "separator"
	KindHeading   Kind = "heading"
	KindTask      Kind = "task"
	KindBullet    Kind = "bullet"
	KindNumbered  Kind = "numbered"
	KindParagraph Kind = "paragraph"
	KindLong      Kind = "long"
)

// maxParagraphLength is the length from which plain lines stop producing nodes.
const maxParagraphLength = 100

var (
	separatorPattern = regexp.MustCompile(`^[-*=_]{3,}$`)
	taskPattern      = regexp.MustCompile(`^[-*] \[([ xX])\] `)
	bulletPattern    = regexp.MustCompile(`^[-*] `)
	numberedPattern  = regexp.MustCompile(`^\d+\. `)
	headingPrefixes  = []string{"# ", "## ", "### ", "#### "}
)

// Line is a classified content line. Level is set for headings only; Text holds
// the line with its markdown marker removed.
type Line struct {
	Kind  Kind
	Level int
	Text  string
}

// ProducesNode reports whether the line contributes a node to the graph.
func (l Line) ProducesNode() bool {
	switch l.Kind {
	case KindBlank, KindSeparator, KindLong:
		return false
	default:
		return true
	}
}

// Classify applies the classification rules to a single line. Leading and
// trailing whitespace is ignored.
func Classify(raw string) Line {
	line := strings.TrimSpace(raw)
	if line == "" {
		return Line{Kind: KindBlank}
	}
	if separatorPattern.MatchString(line) {
		return Line{Kind: KindSeparator}
	}
	for index, prefix := range headingPrefixes {
		if strings.HasPrefix(line, prefix) {
			return Line{Kind: KindHeading, Level: index + 1, Text: line[len(prefix):]}
		}
	}
	if match := taskPattern.FindStringSubmatch(line); match != nil {
		marker := "☐ "
		if match[1] != " " {
			marker = "☑ "
		}
		return Line{Kind: KindTask, Text: marker + line[len(match[0]):]}
	}
	if bulletPattern.MatchString(line) {
		return Line{Kind: KindBullet, Text: line[2:]}
	}
	if location := numberedPattern.FindStringIndex(line); location != nil {
		return Line{Kind: KindNumbered, Text: line[location[1]:]}
	}
	if utf8.RuneCountInString(line) < maxParagraphLength {
		return Line{Kind: KindParagraph, Text: line}
	}
	return Line{Kind: KindLong}
}

// ClassifyContent splits content on newlines and classifies every line.
func ClassifyContent(content string) []Line {
	rawLines := strings.Split(content, "\n")
	lines := make([]Line, len(rawLines))
	for index, raw := range rawLines {
		lines[index] = Classify(raw)
	}
	return lines
}
