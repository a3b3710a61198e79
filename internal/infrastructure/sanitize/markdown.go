// Package sanitize rewrites vault note markup into plain text. The same
// normalization runs before indexing and before prompting.
package sanitize

import "regexp"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

var rules = []rule{
	// ![[diagram.png]]
	{regexp.MustCompile(`!\[\[\S+\]\]`), "![image]"},
	// [[Note|alias]]
	{regexp.MustCompile(`\[\[[^\[\]]+\|([^\[\]]+)\]\]`), "$1"},
	// [[Note]]
	{regexp.MustCompile(`\[\[([^\[\]]+)\]\]`), "$1"},
	// [text](https://...)
	{regexp.MustCompile(`\[([^\[\]]+)\]\(\S+\)`), "$1"},
	// %% comment %%
	{regexp.MustCompile(`%%[^%]+%%`), ""},
}

type MarkdownNormalizer struct{}

func NewMarkdownNormalizer() MarkdownNormalizer {
	return MarkdownNormalizer{}
}

func (MarkdownNormalizer) Normalize(text string) string {
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}
