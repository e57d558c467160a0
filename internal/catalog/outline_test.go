package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/sever/internal/models"
)

func TestOutline(t *testing.T) {
	root := &models.Directory{
		Meta: models.Meta{ZhCN: "文档", EnUS: "Docs"},
		Entries: []models.Entry{
			{Name: "a", Node: &models.Document{ZhCN: "阿尔法", EnUS: "a", Path: "a.md"}},
			{Name: "sub", Node: &models.Directory{
				Meta:    models.Meta{ZhCN: "子", EnUS: "sub"},
				Entries: []models.Entry{{Name: "b", Node: &models.Document{ZhCN: "b", EnUS: "b", Path: "sub/b.md"}}},
			}},
		},
	}

	out := Outline(root, models.LocaleEnUS)
	assert.True(t, strings.HasPrefix(out, "Docs\n"))
	assert.Contains(t, out, "a (a.md)")
	assert.Contains(t, out, "sub/")
	assert.Contains(t, out, "b (sub/b.md)")

	assert.Contains(t, Outline(root, models.LocaleZhCN), "阿尔法 (a.md)")
	assert.Equal(t, "(empty catalog)\n", Outline(nil, models.LocaleZhCN))
}
