package gotmpl

import (
	"strings"
	"text/template"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/PeterMedina/stakx/pkg/markup"
)

// Funcs returns the builtin text helpers.
func Funcs() template.FuncMap {
	md := markup.New(markup.WithUnsafeHTML())
	return template.FuncMap{
		"truncate": Truncate,
		"wordwrap": WordWrap,
		"summary":  Summary,
		"title":    Title,
		"markdown": md.Render,
	}
}

// Truncate shortens s to at most length runes, appending "..." when cut.
func Truncate(length int, s string) string {
	if length <= 0 || utf8.RuneCountInString(s) <= length {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:length]), " ") + "..."
}

// WordWrap breaks s into lines no longer than width, splitting on spaces.
func WordWrap(width int, s string) string {
	words := strings.Fields(s)
	if width <= 0 || len(words) == 0 {
		return s
	}

	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if i > 0 {
			if lineLen+1+wordLen > width {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(word)
		lineLen += wordLen
	}
	return b.String()
}

// Summary returns the text of the first paragraph of an HTML fragment. When
// the fragment has no paragraph, its whole text is returned.
func Summary(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var first *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if first != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "p" {
			first = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	if first == nil {
		first = doc
	}
	return strings.Join(strings.Fields(text(first)), " ")
}

func text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(text(c))
	}
	return b.String()
}

// Title title-cases s.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}
