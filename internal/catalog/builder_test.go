package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sever/internal/models"
	"github.com/starford/sever/internal/testutil"
)

func build(t *testing.T, files map[string]string) (*models.Directory, *testutil.LogRecorder) {
	t.Helper()
	root, _ := testutil.TestContent(t, files)
	logger, rec := testutil.NewLogger()
	dir, err := NewBuilder(root, logger).Build(context.Background())
	require.NoError(t, err)
	return dir, rec
}

func TestBuild_DocsScenario(t *testing.T) {
	dir, _ := build(t, map[string]string{
		"a.md":     "# Alpha\nbody\n",
		"sub/b.md": "no heading here\n",
	})
	require.NotNil(t, dir)

	want := &models.Directory{
		Meta: models.Meta{ZhCN: "Docs", EnUS: "Docs"},
		Entries: []models.Entry{
			{Name: "a", Node: &models.Document{ZhCN: "Alpha", EnUS: "a", Path: "a.md"}},
			{Name: "sub", Node: &models.Directory{
				Meta: models.Meta{ZhCN: "sub", EnUS: "sub"},
				Entries: []models.Entry{
					{Name: "b", Node: &models.Document{ZhCN: "b", EnUS: "b", Path: "sub/b.md"}},
				},
			}},
		},
	}
	assert.Equal(t, want, dir)
}

func TestBuild_EmptyDirectoriesPruned(t *testing.T) {
	dir, _ := build(t, map[string]string{
		"empty/":            "",
		"notes/readme.txt":  "ignored",
		"outer/inner/":      "",
		"outer/inner/x.png": "ignored",
		"a.md":              "a",
	})
	require.NotNil(t, dir)

	for _, name := range []string{"empty", "notes", "outer"} {
		_, ok := dir.Lookup(name)
		assert.False(t, ok, "%s has no markdown and no settings", name)
	}
}

func TestBuild_NamedEmptyDirectoryKept(t *testing.T) {
	dir, _ := build(t, map[string]string{
		"later/settings.json":  `{"zh_CN": "稍后", "en_US": "Later"}`,
		"broken/settings.json": `{not json`,
	})
	require.NotNil(t, dir)

	n, ok := dir.Lookup("later")
	require.True(t, ok, "settings with a name keep the directory")
	assert.Empty(t, n.(*models.Directory).Entries)

	_, ok = dir.Lookup("broken")
	assert.False(t, ok, "malformed settings count as no settings")
}

func TestBuild_EmptyRootKept(t *testing.T) {
	dir, _ := build(t, nil)
	require.NotNil(t, dir)
	assert.Equal(t, "Docs", dir.Meta.ZhCN)
	assert.Empty(t, dir.Entries)
}

func TestBuild_EmptyNameOverridePrunes(t *testing.T) {
	dir, _ := build(t, map[string]string{
		"hidden/settings.json":        `{"zh_CN": ""}`,
		"hidden/deeper/settings.json": `{"zh_CN": ""}`,
		"kept/settings.json":          `{"zh_CN": ""}`,
		"kept/page.md":                "# Page\n",
	})
	require.NotNil(t, dir)

	_, ok := dir.Lookup("hidden")
	assert.False(t, ok, "emptiness should propagate upward and prune")

	n, ok := dir.Lookup("kept")
	require.True(t, ok, "content forces inclusion despite empty name")
	assert.Equal(t, "", n.(*models.Directory).Meta.ZhCN)
}

func TestBuild_RootAbsentWhenEmptyAndUnnamed(t *testing.T) {
	dir, _ := build(t, map[string]string{
		"settings.json": `{"zh_CN": ""}`,
	})
	assert.Nil(t, dir)
}

func TestBuild_EveryMarkdownDirectoryPresent(t *testing.T) {
	dir, _ := build(t, map[string]string{
		"x/y/z/deep.md": "deep",
		"x/top.md":      "top",
		"w/v.md":        "v",
	})
	var paths []string
	dir.Walk(func(doc *models.Document) { paths = append(paths, doc.Path) })
	assert.Equal(t, []string{"w/v.md", "x/top.md", "x/y/z/deep.md"}, paths)
}

func TestBuild_SettingsOverride(t *testing.T) {
	dir, rec := build(t, map[string]string{
		"guide/settings.json": `{"zh_CN": "指南", "en_US": "Guide", "order": 3}`,
		"guide/intro.md":      "# 简介\n",
	})
	n, ok := dir.Lookup("guide")
	require.True(t, ok)
	guide := n.(*models.Directory)

	assert.Equal(t, "指南", guide.Meta.ZhCN)
	assert.Equal(t, "Guide", guide.Meta.EnUS)
	assert.Equal(t, json.RawMessage("3"), guide.Meta.Extra["order"])
	assert.Len(t, guide.Entries, 1, "settings.json is not content")
	assert.Empty(t, rec.Messages(slog.LevelWarn))
}

func TestBuild_MalformedSettingsWarns(t *testing.T) {
	cases := map[string]string{
		"syntax":     `{"zh_CN": `,
		"not object": `["x"]`,
		"null":       `null`,
		"non string": `{"zh_CN": 42}`,
	}
	for name, settings := range cases {
		t.Run(name, func(t *testing.T) {
			dir, rec := build(t, map[string]string{
				"d/settings.json": settings,
				"d/p.md":          "p",
			})
			n, ok := dir.Lookup("d")
			require.True(t, ok)
			assert.Equal(t, models.Meta{ZhCN: "d", EnUS: "d"}, n.(*models.Directory).Meta)
			assert.Contains(t, rec.Messages(slog.LevelWarn), "catalog: settings malformed, using defaults")
		})
	}
}

func TestBuild_TitleExtraction(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"heading", "# Hello World\nbody", "Hello World"},
		{"heading trailing space", "# Hello   \r\n", "Hello"},
		{"plain text", "Hello World\n", "page"},
		{"level two", "## Sub\n", "page"},
		{"no space", "#Tag\n", "page"},
		{"empty file", "", "page"},
		{"bom", "\ufeff# With BOM\n", "With BOM"},
		{"heading not first", "\n# Late\n", "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, _ := build(t, map[string]string{"page.md": tt.content})
			n, ok := dir.Lookup("page")
			require.True(t, ok)
			doc := n.(*models.Document)
			assert.Equal(t, tt.want, doc.ZhCN)
			assert.Equal(t, "page", doc.EnUS)
		})
	}
}

func TestBuild_InvalidUTF8TitleWarns(t *testing.T) {
	dir, rec := build(t, map[string]string{"gbk.md": "# \xc4\xe3\xba\xc3\n"})
	n, ok := dir.Lookup("gbk")
	require.True(t, ok)
	assert.Equal(t, "gbk", n.(*models.Document).ZhCN)
	assert.Contains(t, rec.Messages(slog.LevelWarn), "catalog: title extraction failed, using file name")
}

func TestBuild_UnreadableDocumentWarns(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are ignored for root")
	}
	root, _ := testutil.TestContent(t, map[string]string{"locked.md": "# Secret\n"})
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.md"), 0o000))

	logger, rec := testutil.NewLogger()
	dir, err := NewBuilder(root, logger).Build(context.Background())
	require.NoError(t, err)

	n, _ := dir.Lookup("locked")
	assert.Equal(t, "locked", n.(*models.Document).ZhCN)
	assert.NotEmpty(t, rec.Messages(slog.LevelWarn))
}

func TestBuild_DuplicateKeyLaterWins(t *testing.T) {
	dir, rec := build(t, map[string]string{
		"a/x.md": "x",
		"a.md":   "# File A\n",
	})
	n, ok := dir.Lookup("a")
	require.True(t, ok)
	doc, isDoc := n.(*models.Document)
	require.True(t, isDoc, "a.md sorts after a/ and replaces it")
	assert.Equal(t, "File A", doc.ZhCN)
	assert.Len(t, dir.Entries, 1)
	assert.Contains(t, rec.Messages(slog.LevelWarn), "catalog: duplicate entry name, later entry wins")
}

func TestBuild_ExtensionIsCaseSensitive(t *testing.T) {
	dir, _ := build(t, map[string]string{"UPPER.MD": "# x", "lower.md": "# y"})
	_, ok := dir.Lookup("UPPER")
	assert.False(t, ok)
	_, ok = dir.Lookup("lower")
	assert.True(t, ok)
}

func TestBuild_SortedEntries(t *testing.T) {
	dir, _ := build(t, map[string]string{"c.md": "", "a.md": "", "b/x.md": ""})
	var names []string
	for _, e := range dir.Entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestBuild_FollowsSymlinkedDirectory(t *testing.T) {
	root, _ := testutil.TestContent(t, nil)
	outside := t.TempDir()
	testutil.WriteTree(t, outside, map[string]string{"linked.md": "# Linked\n"})
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "shared")))

	dir, err := NewBuilder(root, slog.Default()).Build(context.Background())
	require.NoError(t, err)

	n, ok := dir.Lookup("shared")
	require.True(t, ok)
	doc, ok := n.(*models.Directory).Lookup("linked")
	require.True(t, ok)
	assert.Equal(t, "shared/linked.md", doc.(*models.Document).Path)
}

func TestBuild_MissingRootFails(t *testing.T) {
	_, err := NewBuilder(filepath.Join(t.TempDir(), "nope"), nil).Build(context.Background())
	assert.Error(t, err)
}

func TestBuild_CancelledContext(t *testing.T) {
	root, _ := testutil.TestContent(t, map[string]string{"a.md": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder(root, nil).Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHeadingTitle(t *testing.T) {
	title, ok := HeadingTitle("# Hello World\n")
	assert.True(t, ok)
	assert.Equal(t, "Hello World", title)

	_, ok = HeadingTitle("Hello World")
	assert.False(t, ok)
}
