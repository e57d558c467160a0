package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/starford/sever/internal/models"
)

const (
	keyMeta    = "_meta"
	keyContent = "_content"
	keyPath    = "path"
)

type wireDocument struct {
	ZhCN string `json:"zh_CN"`
	EnUS string `json:"en_US"`
	Path string `json:"path"`
}

// wireDirectory writes _meta before _content by field order. Keys inside
// both maps come out in encoding/json's sorted-key order, not insertion order.
type wireDirectory struct {
	Meta    map[string]any `json:"_meta"`
	Content map[string]any `json:"_content"`
}

// Encode writes root as the catalog artifact: indented UTF-8 JSON with
// non-ASCII and HTML characters kept literal. A nil root encodes as null.
func Encode(w io.Writer, root *models.Directory) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	var v any
	if root != nil {
		v = toWire(root)
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	return nil
}

func toWire(d *models.Directory) wireDirectory {
	meta := make(map[string]any, len(d.Meta.Extra)+2)
	for k, v := range d.Meta.Extra {
		meta[k] = v
	}
	meta[models.LocaleZhCN] = d.Meta.ZhCN
	meta[models.LocaleEnUS] = d.Meta.EnUS

	content := make(map[string]any, len(d.Entries))
	for _, e := range d.Entries {
		switch n := e.Node.(type) {
		case *models.Document:
			content[e.Name] = wireDocument{ZhCN: n.ZhCN, EnUS: n.EnUS, Path: n.Path}
		case *models.Directory:
			content[e.Name] = toWire(n)
		}
	}
	return wireDirectory{Meta: meta, Content: content}
}

// Decode parses a catalog artifact. Entries come back sorted by name.
func Decode(r io.Reader) (*models.Directory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read artifact: %w", err)
	}
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("catalog: decode root: %w", err)
	}
	return decodeDirectory("", fields)
}

func decodeDirectory(name string, fields map[string]json.RawMessage) (*models.Directory, error) {
	dir := &models.Directory{}

	if raw, ok := fields[keyMeta]; ok {
		m, err := applySettings(models.Meta{}, raw)
		if err != nil {
			return nil, fmt.Errorf("catalog: %q meta: %w", name, err)
		}
		dir.Meta = m
	}

	var content map[string]json.RawMessage
	if raw, ok := fields[keyContent]; ok {
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, fmt.Errorf("catalog: %q content: %w", name, err)
		}
	}

	names := make([]string, 0, len(content))
	for k := range content {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, key := range names {
		n, err := decodeNode(key, content[key])
		if err != nil {
			return nil, err
		}
		dir.Entries = append(dir.Entries, models.Entry{Name: key, Node: n})
	}
	return dir, nil
}

func decodeNode(name string, raw json.RawMessage) (models.Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("catalog: entry %q is not an object", name)
	}

	if _, ok := fields[keyPath]; ok {
		var doc wireDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("catalog: document %q: %w", name, err)
		}
		return &models.Document{ZhCN: doc.ZhCN, EnUS: doc.EnUS, Path: doc.Path}, nil
	}

	_, hasMeta := fields[keyMeta]
	_, hasContent := fields[keyContent]
	if !hasMeta && !hasContent {
		return nil, fmt.Errorf("catalog: entry %q is neither a document nor a directory", name)
	}
	return decodeDirectory(name, fields)
}
