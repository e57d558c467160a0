package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_UTF8(t *testing.T) {
	text, enc, err := Decode([]byte("# 你好\n"))
	require.NoError(t, err)
	assert.Equal(t, "# 你好\n", text)
	assert.Equal(t, EncodingUTF8, enc)
}

func TestDecode_StripsBOM(t *testing.T) {
	text, _, err := Decode(append([]byte{0xEF, 0xBB, 0xBF}, "# Title"...))
	require.NoError(t, err)
	assert.Equal(t, "# Title", text)
}

func TestDecode_GBKFallback(t *testing.T) {
	// "你好" in GBK.
	text, enc, err := Decode([]byte{'#', ' ', 0xC4, 0xE3, 0xBA, 0xC3})
	require.NoError(t, err)
	assert.Equal(t, "# 你好", text)
	assert.Equal(t, EncodingGBK, enc)
}

func TestRender_Basics(t *testing.T) {
	r := New(Options{})
	out, err := r.Render([]byte("# Hello World\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\nText[^1]\n\n[^1]: note\n"))
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `<h1 id="hello-world">Hello World</h1>`)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "footnote")
}

func TestRender_FencedCode(t *testing.T) {
	out, err := New(Options{}).Render([]byte("```go\nfmt.Println(1)\n```\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<code class="language-go">`)
}

func TestRender_HardWraps(t *testing.T) {
	src := []byte("line one\nline two\n")

	soft, err := New(Options{}).Render(src)
	require.NoError(t, err)
	assert.NotContains(t, string(soft), "<br")

	hard, err := New(Options{HardWraps: true}).Render(src)
	require.NoError(t, err)
	assert.Contains(t, string(hard), "<br")
}

func TestRender_SafeModeDropsRawHTML(t *testing.T) {
	src := []byte("<div class=\"note\">raw</div>\n")

	unsafe, err := New(Options{}).Render(src)
	require.NoError(t, err)
	assert.Contains(t, string(unsafe), `<div class="note">`)

	safe, err := New(Options{SafeMode: true}).Render(src)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(safe), `<div class="note">`))
}

func TestRender_DefinitionList(t *testing.T) {
	out, err := New(Options{}).Render([]byte("Term\n: Definition\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "<dl>")
}

func TestOptionsFingerprint(t *testing.T) {
	base := Options{}
	assert.NotEqual(t, base.Fingerprint(), Options{SafeMode: true}.Fingerprint())
	assert.NotEqual(t, base.Fingerprint(), Options{HardWraps: true}.Fingerprint())
	assert.Equal(t, base.Fingerprint(), Options{Math: true}.Fingerprint(), "math does not change the HTML")
}
