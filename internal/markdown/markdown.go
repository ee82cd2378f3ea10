// Package markdown inspects note documents and rewrites their image links
// between the stored relative form and a display form.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var imageRe = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)

// Result holds the output of parsing a note document.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	// Images lists relative image references (e.g. images/a.png) in order of
	// first appearance.
	Images []string
}

// Parse extracts frontmatter, body, title and image references.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Images:      extractImages(body),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Missing or invalid frontmatter leaves the whole document as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// deriveTitle returns the frontmatter "title", otherwise the first H1.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func extractImages(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range imageRe.FindAllStringSubmatch(body, -1) {
		src := m[2]
		if !IsRelative(src) {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		out = append(out, src)
	}
	return out
}

// IsRelative reports whether src is a document-relative reference such as
// images/a.png, as opposed to a URL, an absolute path or a fragment.
func IsRelative(src string) bool {
	switch {
	case src == "",
		strings.HasPrefix(src, "/"),
		strings.HasPrefix(src, `\`),
		strings.HasPrefix(src, "#"),
		strings.HasPrefix(src, "data:"),
		strings.Contains(src, "://"):
		return false
	}
	return true
}

// ImageLink formats a markdown image embedding rel.
func ImageLink(alt, rel string) string {
	return "![" + alt + "](" + rel + ")"
}

// ToDisplay prefixes every relative image reference with prefix, turning
// images/a.png into something a viewer can fetch.
func ToDisplay(md, prefix string) string {
	return ToDisplayFunc(md, func(ref string) string { return prefix + ref })
}

// ToDisplayFunc replaces every relative image reference with link(ref).
// Absolute and remote references are left alone.
func ToDisplayFunc(md string, link func(ref string) string) string {
	return imageRe.ReplaceAllStringFunc(md, func(match string) string {
		m := imageRe.FindStringSubmatch(match)
		if !IsRelative(m[2]) {
			return match
		}
		return ImageLink(m[1], link(m[2]))
	})
}

// ToRelative strips the first matching prefix from image references, undoing
// ToDisplay. Backslashes are compared as slashes so Windows-style absolute
// note paths are recognized too; unmatched references are left as written.
func ToRelative(md string, prefixes ...string) string {
	return ToRelativeFunc(md, func(src string) (string, bool) {
		for _, prefix := range prefixes {
			if prefix == "" {
				continue
			}
			if rest, ok := strings.CutPrefix(src, strings.ReplaceAll(prefix, `\`, "/")); ok {
				return rest, true
			}
		}
		return "", false
	})
}

// ToRelativeFunc passes every image reference, with backslashes turned
// into slashes, to ref. When ref reports true the reference is replaced by
// the returned value, otherwise it is kept as written.
func ToRelativeFunc(md string, ref func(src string) (string, bool)) string {
	return imageRe.ReplaceAllStringFunc(md, func(match string) string {
		m := imageRe.FindStringSubmatch(match)
		if rel, ok := ref(strings.ReplaceAll(m[2], `\`, "/")); ok {
			return ImageLink(m[1], rel)
		}
		return match
	})
}
