package mindmap

import "regexp"

const (
	maxLabelLength  = 50
	truncatedLength = 47
	ellipsis        = "..."
)

var labelRewrites = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.*?)__`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile("`(.*?)`"), "$1"},
}

// CleanLabel strips inline markdown (images, links, emphasis, code) from text and
// shortens it to at most 50 characters.
func CleanLabel(text string) string {
	for _, rewrite := range labelRewrites {
		text = rewrite.pattern.ReplaceAllString(text, rewrite.replacement)
	}
	runes := []rune(text)
	if len(runes) > maxLabelLength {
		return string(runes[:truncatedLength]) + ellipsis
	}
	return text
}
