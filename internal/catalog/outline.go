package catalog

import (
	"github.com/disiqueira/gotree/v3"

	"github.com/starford/sever/internal/models"
)

// Outline renders the catalog as an indented text tree using the display
// names for locale.
func Outline(root *models.Directory, locale string) string {
	if root == nil {
		return "(empty catalog)\n"
	}
	t := gotree.New(root.Meta.Name(locale))
	addEntries(t, root, locale)
	return t.Print()
}

func addEntries(t gotree.Tree, dir *models.Directory, locale string) {
	for _, e := range dir.Entries {
		switch n := e.Node.(type) {
		case *models.Document:
			t.Add(n.Title(locale) + " (" + n.Path + ")")
		case *models.Directory:
			addEntries(t.Add(n.Meta.Name(locale)+"/"), n, locale)
		}
	}
}
