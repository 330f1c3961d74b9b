package frontmatter

import (
	"regexp"
	"strings"
)

var (
	repeatedSlashes = regexp.MustCompile(`/+`)
	disallowedChars = regexp.MustCompile(`[^0-9a-zA-Z\-_/.]`)
)

// Sanitize cleans a permalink: repeated separators are collapsed, spaces become
// hyphens, characters outside [0-9a-zA-Z-_/.] are dropped, the template
// extension is stripped and a leading "./" is removed. It never fails and is
// idempotent.
func Sanitize(permalink, templateExt string) string {
	p := repeatedSlashes.ReplaceAllString(permalink, "/")
	p = strings.ReplaceAll(p, " ", "-")
	p = disallowedChars.ReplaceAllString(p, "")
	p = repeatedSlashes.ReplaceAllString(p, "/")

	for {
		before := p
		if templateExt != "" && Extension(p) == templateExt {
			p = p[:len(p)-len(templateExt)-1]
		}
		p = strings.TrimPrefix(p, "./")
		if p == before {
			return p
		}
	}
}

// PathPermalink derives a permalink from a site relative file path, dropping a
// leading underscore prefixed folder such as "_pages".
func PathPermalink(relPath string) string {
	clean := strings.TrimLeft(strings.ReplaceAll(relPath, "\\", "/"), "/")

	folders := strings.Split(clean, "/")
	if len(folders) > 1 && strings.HasPrefix(folders[0], "_") {
		folders = folders[1:]
	}
	return strings.Join(folders, "/")
}

// TargetFile resolves the output file of a permalink: extension-less permalinks
// get "/index.html" appended and the leading slash is removed.
func TargetFile(permalink string) string {
	target := permalink
	if Extension(permalink) == "" {
		target = strings.TrimRight(permalink, "/") + "/index.html"
	}
	return strings.TrimLeft(target, "/")
}

// Extension returns the extension of the last path segment without the dot.
func Extension(p string) string {
	base := p
	if i := strings.LastIndex(p, "/"); i >= 0 {
		base = p[i+1:]
	}
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return base[i+1:]
}
