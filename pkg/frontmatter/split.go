// Package frontmatter implements the pure parts of document handling: splitting
// a raw file into its front matter block and body, evaluating %variables,
// expanding repeater permalinks and sanitizing permalinks.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/PeterMedina/stakx/pkg/core"
)

var (
	// ErrMissingDelimiters indicates the raw content has no ---…--- block.
	ErrMissingDelimiters = errors.New("front matter delimiters not found")
	// ErrEmptyBody indicates the body following the front matter is blank.
	ErrEmptyBody = errors.New("document must have a body to render")
)

var blockPattern = regexp.MustCompile(`(?s)---(.*?)---(.*)`)

// Block is a raw document split into its parts.
type Block struct {
	FrontMatter []byte
	Body        string
	// LineOffset is the number of file lines preceding the first body line.
	LineOffset int
}

// Split separates the front matter block from the body using the
// "---" block "---" body grammar. The body is trimmed and must not be empty.
func Split(raw []byte) (Block, error) {
	m := blockPattern.FindSubmatchIndex(raw)
	if m == nil {
		return Block{}, ErrMissingDelimiters
	}

	bodyRaw := raw[m[4]:m[5]]
	trimmed := bytes.TrimSpace(bodyRaw)
	if len(trimmed) == 0 {
		return Block{}, ErrEmptyBody
	}

	leading := len(bodyRaw) - len(bytes.TrimLeft(bodyRaw, " \t\r\n"))

	return Block{
		FrontMatter: raw[m[2]:m[3]],
		Body:        string(trimmed),
		LineOffset:  bytes.Count(raw[:m[4]+leading], []byte("\n")),
	}, nil
}

// Parse decodes a YAML front matter block. An empty block yields an empty map.
func Parse(block []byte) (core.FrontMatter, error) {
	fm := core.FrontMatter{}
	if len(bytes.TrimSpace(block)) == 0 {
		return fm, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(block, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse front matter: %w", err)
	}
	for k, v := range fields {
		fm[k] = v
	}
	return fm, nil
}
