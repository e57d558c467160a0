// Package models defines the domain types for Sever.
package models

import "encoding/json"

// Locale field names shared by directory metadata and document titles.
const (
	LocaleZhCN = "zh_CN"
	LocaleEnUS = "en_US"
)

// Node is one entry of the catalog tree: either a *Directory or a *Document.
type Node interface {
	node()
}

// Meta holds the display names of a directory.
type Meta struct {
	ZhCN string
	EnUS string
	// Extra carries any other settings.json keys through to the artifact untouched.
	Extra map[string]json.RawMessage
}

// Name returns the display name for locale, falling back to zh_CN.
func (m Meta) Name(locale string) string {
	if locale == LocaleEnUS && m.EnUS != "" {
		return m.EnUS
	}
	return m.ZhCN
}

// Entry is a named child of a directory.
type Entry struct {
	Name string
	Node Node
}

// Directory is a scanned folder of the content root.
type Directory struct {
	Meta    Meta
	Entries []Entry
}

func (*Directory) node() {}

// Lookup returns the child named name.
func (d *Directory) Lookup(name string) (Node, bool) {
	for _, e := range d.Entries {
		if e.Name == name {
			return e.Node, true
		}
	}
	return nil, false
}

// Put adds or replaces the child named name. It reports whether an existing
// entry was replaced.
func (d *Directory) Put(name string, n Node) bool {
	for i, e := range d.Entries {
		if e.Name == name {
			d.Entries[i].Node = n
			return true
		}
	}
	d.Entries = append(d.Entries, Entry{Name: name, Node: n})
	return false
}

// Document is a markdown file of the content root.
type Document struct {
	ZhCN string
	EnUS string
	// Path is relative to the content root and always uses forward slashes.
	Path string
}

func (*Document) node() {}

// Title returns the display title for locale, falling back to zh_CN.
func (d *Document) Title(locale string) string {
	if locale == LocaleEnUS && d.EnUS != "" {
		return d.EnUS
	}
	return d.ZhCN
}

// Walk calls fn for every document under d in entry order.
func (d *Directory) Walk(fn func(doc *Document)) {
	for _, e := range d.Entries {
		switch n := e.Node.(type) {
		case *Document:
			fn(n)
		case *Directory:
			n.Walk(fn)
		}
	}
}
