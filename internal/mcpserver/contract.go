package mcpserver

// CatalogFormat describes the catalog JSON and the settings files that shape
// it, for MCP clients browsing the wiki.
const CatalogFormat = `# Sever Catalog Format

The catalog mirrors the content root. Only ` + "`.md`" + ` files are listed.

## Directory

` + "```" + `json
{
  "_meta": {"zh_CN": "显示名", "en_US": "Display name"},
  "_content": {
    "<entry name>": <directory or page>
  }
}
` + "```" + `

- ` + "`_meta`" + ` defaults to the directory name in both locales.
- A ` + "`settings.json`" + ` file in the directory overrides ` + "`zh_CN`" + ` and
  ` + "`en_US`" + `; any other keys are carried through unchanged.
- Directories with no pages below them are left out, unless their
  ` + "`settings.json`" + ` gives them a non-empty ` + "`zh_CN`" + `.

## Page

` + "```" + `json
{"zh_CN": "Title", "en_US": "file-stem", "path": "guide/file-stem.md"}
` + "```" + `

- ` + "`zh_CN`" + ` is the first line of the file when it is a level-one heading
  (` + "`# Title`" + `), otherwise the file stem.
- ` + "`en_US`" + ` is always the file stem.
- ` + "`path`" + ` is relative to the content root with forward slashes. Pass it
  to ` + "`read_page`" + ` or ` + "`render_page`" + `.

Entry names are file stems and directory names. When a page and a directory
share a name, the later one in name order wins.

The whole catalog is ` + "`null`" + ` when the root itself would be left out.
`
