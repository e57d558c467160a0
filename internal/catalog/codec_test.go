package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sever/internal/models"
	"github.com/starford/sever/internal/testutil"
)

func TestEncode_ArtifactSchema(t *testing.T) {
	root := &models.Directory{
		Meta: models.Meta{ZhCN: "文档", EnUS: "Docs"},
		Entries: []models.Entry{
			{Name: "a", Node: &models.Document{ZhCN: "<Alpha> & 你好", EnUS: "a", Path: "a.md"}},
			{Name: "sub", Node: &models.Directory{
				Meta:    models.Meta{ZhCN: "sub", EnUS: "sub"},
				Entries: []models.Entry{{Name: "b", Node: &models.Document{ZhCN: "b", EnUS: "b", Path: "sub/b.md"}}},
			}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, root))
	out := buf.String()

	assert.Contains(t, out, `"zh_CN": "文档"`, "non-ASCII is kept literal")
	assert.Contains(t, out, `"<Alpha> & 你好"`, "HTML characters are not escaped")
	assert.Contains(t, out, "\n  \"_content\": {", "two-space indentation")

	var generic map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	content := generic["_content"].(map[string]any)
	a := content["a"].(map[string]any)
	assert.Equal(t, "a.md", a["path"])
	sub := content["sub"].(map[string]any)
	assert.Equal(t, "sub", sub["_meta"].(map[string]any)["en_US"])
	assert.Equal(t, "sub/b.md", sub["_content"].(map[string]any)["b"].(map[string]any)["path"])
}

func TestRoundTrip_BuiltCatalog(t *testing.T) {
	root, _ := testutil.TestContent(t, map[string]string{
		"a.md":                 "# Alpha\n",
		"sub/b.md":             "plain\n",
		"sub/settings.json":    `{"zh_CN": "子目录", "en_US": "Sub", "icon": {"name": "book", "size": 2}}`,
		"sub/deeper/c.md":      "# Gamma\n",
		"sub/deeper/notes.txt": "ignored",
	})
	built, err := NewBuilder(root, nil).Build(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, built))
	loaded, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, built, loaded)
}

func TestRoundTrip_NilRoot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil))
	assert.Equal(t, "null\n", buf.String())

	loaded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestDecode_LegacyArtifact(t *testing.T) {
	// Artifacts written by earlier versions use the same layout but are not
	// sorted.
	artifact := `{
  "_meta": {"zh_CN": "Docs", "en_US": "Docs"},
  "_content": {
    "z": {"zh_CN": "Zed", "en_US": "z", "path": "z.md"},
    "m": {"_meta": {"zh_CN": "M", "en_US": "M"}, "_content": {}}
  }
}`
	root, err := Decode(strings.NewReader(artifact))
	require.NoError(t, err)
	require.Len(t, root.Entries, 2)
	assert.Equal(t, "m", root.Entries[0].Name)
	assert.IsType(t, &models.Directory{}, root.Entries[0].Node)
	assert.Equal(t, &models.Document{ZhCN: "Zed", EnUS: "z", Path: "z.md"}, root.Entries[1].Node)
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"syntax":        `{"_meta": `,
		"not object":    `[1, 2]`,
		"unknown entry": `{"_content": {"x": {"title": "?"}}}`,
		"scalar entry":  `{"_content": {"x": 1}}`,
		"bad meta":      `{"_meta": {"zh_CN": 7}}`,
	}
	for name, artifact := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(artifact))
			assert.Error(t, err)
		})
	}
}

func TestEncode_KeyOrder(t *testing.T) {
	root := &models.Directory{
		Meta: models.Meta{ZhCN: "r", EnUS: "r"},
		Entries: []models.Entry{
			{Name: "zeta", Node: &models.Document{ZhCN: "z", EnUS: "zeta", Path: "zeta.md"}},
			{Name: "alpha", Node: &models.Document{ZhCN: "a", EnUS: "alpha", Path: "alpha.md"}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, root))
	out := buf.String()

	assert.Less(t, strings.Index(out, `"_meta"`), strings.Index(out, `"_content"`))
	assert.Less(t, strings.Index(out, `"alpha"`), strings.Index(out, `"zeta"`), "content keys are sorted, not kept in entry order")
}
