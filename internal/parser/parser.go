// Package parser extracts frontmatter, outbound links, and inline tags from Markdown content.
package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/chronos/internal/frontmatter"
	"github.com/starford/chronos/internal/models"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	mdLinkRe   = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	inlineCode = regexp.MustCompile("`[^`]*`")
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter models.Frontmatter
	Body        string
	Links       []models.LinkOccurrence
	Tags        []models.TagOccurrence
	Title       string
}

// Cache converts the parse result into the metadata cached for a note.
func (r *Result) Cache() *models.FileCache {
	return &models.FileCache{
		Tags:        r.Tags,
		Frontmatter: r.Frontmatter,
		Links:       r.Links,
	}
}

// Parse extracts frontmatter, body, links, and inline tags from raw Markdown bytes.
// Invalid YAML front matter is not an error: the whole file is treated as body.
func Parse(data []byte) (*Result, error) {
	fm, body, bodyLine := splitFrontmatter(data)

	links, tags := scanBody(body, bodyLine)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       links,
		Tags:        tags,
		Title:       deriveTitle(fm, body),
	}, nil
}

// splitFrontmatter returns the decoded front matter (nil if absent or
// invalid), the body, and the 1-based line number the body starts at.
func splitFrontmatter(data []byte) (models.Frontmatter, string, int) {
	block, body, ok := frontmatter.Split(data)
	if !ok {
		return nil, string(data), 1
	}
	fm, err := frontmatter.Decode(block)
	if err != nil {
		return nil, string(data), 1
	}
	consumed := len(data) - len(body)
	return fm, string(body), strings.Count(string(data[:consumed]), "\n") + 1
}

// scanBody walks body line by line, skipping fenced code blocks and inline
// code, and collects link targets (with occurrence counts, in first-seen
// order) and inline tags (with line numbers).
func scanBody(body string, firstLine int) ([]models.LinkOccurrence, []models.TagOccurrence) {
	var links []models.LinkOccurrence
	var tags []models.TagOccurrence
	pos := make(map[string]int)

	addLink := func(target string) {
		if target == "" {
			return
		}
		if i, ok := pos[target]; ok {
			links[i].Count++
			return
		}
		pos[target] = len(links)
		links = append(links, models.LinkOccurrence{Target: target, Count: 1})
	}

	inFence := false
	for i, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		clean := inlineCode.ReplaceAllString(line, "")

		for _, m := range wikilinkRe.FindAllStringSubmatch(clean, -1) {
			addLink(wikiTarget(m[1]))
		}
		for _, m := range mdLinkRe.FindAllStringSubmatch(clean, -1) {
			addLink(markdownTarget(m[1]))
		}

		stripped := mdLinkRe.ReplaceAllString(wikilinkRe.ReplaceAllString(clean, ""), "")
		for _, m := range tagRe.FindAllStringSubmatch(stripped, -1) {
			tags = append(tags, models.TagOccurrence{Tag: "#" + m[1], Line: firstLine + i})
		}
	}
	return links, tags
}

// wikiTarget normalises the inside of [[...]]: aliases and heading or block
// subpaths are dropped. [[#Heading]] refers to the note itself and yields "".
func wikiTarget(raw string) string {
	if i := strings.Index(raw, "|"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, "#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// markdownTarget returns the vault path of a [text](target) link, or "" for
// external URLs and non-note targets.
func markdownTarget(raw string) string {
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "mailto:") {
		return ""
	}
	if i := strings.Index(raw, "#"); i >= 0 {
		raw = raw[:i]
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasSuffix(strings.ToLower(raw), ".md") {
		return ""
	}
	return raw
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm models.Frontmatter, body string) string {
	if t, ok := fm["title"].(string); ok && t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
