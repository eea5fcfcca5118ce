// Package frontmatter splits, decodes and re-renders the YAML block at the
// head of a Markdown note, and applies read-modify-write transactions to it.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/chronos/internal/models"
)

// ErrMalformed is returned when a note's front matter is not a YAML mapping.
var ErrMalformed = errors.New("malformed front matter")

const delim = "---"

// Split separates the front matter block from the body. The opening
// delimiter must be the first line of data. ok is false when data has no
// (closed) front matter, in which case body is data unchanged.
func Split(data []byte) (block, body []byte, ok bool) {
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 || strings.TrimSpace(string(data[:nl])) != delim {
		return nil, data, false
	}
	rest := data[nl+1:]
	for off := 0; off < len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line, next := rest[off:], len(rest)
		if end >= 0 {
			line, next = rest[off:off+end], off+end+1
		}
		if strings.TrimSpace(string(line)) == delim {
			return rest[:off], rest[next:], true
		}
		off = next
	}
	return nil, data, false
}

// Document is a decoded front matter block. It keeps the parsed YAML
// mapping so Render can write untouched values back exactly as they were
// written, leaving dates, octal-looking strings and custom scalars alone.
type Document struct {
	// Fields holds the decoded values and is what transactions mutate.
	Fields models.Frontmatter

	node *yaml.Node
	orig models.Frontmatter
}

// Parse decodes a front matter block. An empty block yields an empty
// document; anything other than a mapping is ErrMalformed.
func Parse(block []byte) (*Document, error) {
	doc := &Document{Fields: models.Frontmatter{}, orig: models.Frontmatter{}}
	if len(bytes.TrimSpace(block)) == 0 {
		return doc, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(block, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(root.Content) == 0 {
		return doc, nil
	}
	m := root.Content[0]
	if m.Kind == yaml.ScalarNode && m.Tag == "!!null" {
		return doc, nil
	}
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping", ErrMalformed)
	}
	// Decoded twice so the snapshot shares nothing with Fields.
	if err := m.Decode(&doc.Fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := m.Decode(&doc.orig); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	doc.node = m
	return doc, nil
}

// Decode parses a front matter block into its values.
func Decode(block []byte) (models.Frontmatter, error) {
	doc, err := Parse(block)
	if err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

func (d *Document) modified(key string, v any) bool {
	o, ok := d.orig[key]
	return !ok || !reflect.DeepEqual(o, v)
}

// Changed reports whether Fields differs from the parsed block.
func (d *Document) Changed() bool {
	if len(d.Fields) != len(d.orig) {
		return true
	}
	for k, v := range d.Fields {
		if d.modified(k, v) {
			return true
		}
	}
	return false
}

// Render writes the document as a front matter block followed by body.
// Existing keys keep their position and, when their value is unchanged,
// their original YAML node. New keys follow, sorted.
func (d *Document) Render(body []byte) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	seen := make(map[string]struct{}, len(d.Fields))
	if d.node != nil {
		for i := 0; i+1 < len(d.node.Content); i += 2 {
			key, val := d.node.Content[i], d.node.Content[i+1]
			v, ok := d.Fields[key.Value]
			if !ok {
				continue
			}
			if _, dup := seen[key.Value]; dup {
				continue
			}
			seen[key.Value] = struct{}{}
			if d.modified(key.Value, v) {
				var err error
				if val, err = encodeValue(key.Value, v); err != nil {
					return nil, err
				}
			}
			root.Content = append(root.Content, key, val)
		}
	}

	var extra []string
	for k := range d.Fields {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		val, err := encodeValue(k, d.Fields[k])
		if err != nil {
			return nil, err
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	if len(root.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return nil, fmt.Errorf("frontmatter: encode: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("frontmatter: encode: %w", err)
		}
	}
	buf.WriteString(delim + "\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

func encodeValue(key string, v any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("frontmatter: encode %q: %w", key, err)
	}
	return &n, nil
}
