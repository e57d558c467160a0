// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the wiki catalog and pages over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sever/internal/apperr"
	"github.com/starford/sever/internal/catalog"
	"github.com/starford/sever/internal/models"
	"github.com/starford/sever/internal/wikiservice"
)

// Resource URIs.
const (
	CatalogURI       = "sever://catalog"
	CatalogFormatURI = "sever://catalog-format"
)

// Catalog output formats accepted by get_catalog.
const (
	formatJSON    = "json"
	formatOutline = "outline"
)

// Server wraps the MCP server with the wiki tools.
type Server struct {
	mcp *server.MCPServer
	svc *wikiservice.Service
}

// New creates a new MCP server with all wiki tools registered.
func New(svc *wikiservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Sever",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_catalog",
		mcp.WithDescription("Return the wiki catalog: directories with localized names and the pages they contain. "+
			"See the sever://catalog-format resource for the JSON layout."),
		mcp.WithString("format", mcp.Description("json (default) or outline"), mcp.Enum(formatJSON, formatOutline)),
		mcp.WithString("lang", mcp.Description("Display locale for the outline: zh_CN (default) or en_US"),
			mcp.Enum(models.LocaleZhCN, models.LocaleEnUS)),
	), s.getCatalog)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the Markdown source of a wiki page."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Page path relative to the content root (e.g. guide/intro.md)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("render_page",
		mcp.WithDescription("Render a wiki page to HTML. Returns path, title, html, checksum and source encoding as JSON."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Page path relative to the content root (e.g. guide/intro.md)")),
	), s.renderPage)

	s.mcp.AddResource(
		mcp.NewResource(CatalogURI, "Wiki Catalog",
			mcp.WithResourceDescription("The catalog artifact as served by /api/catalog."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCatalogResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(CatalogFormatURI, "Catalog Format",
			mcp.WithResourceDescription("Layout of the catalog JSON and of per-directory settings.json files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCatalogFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) catalogJSON(ctx context.Context) (string, error) {
	root, err := s.svc.Catalog(ctx)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := catalog.Encode(&buf, root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) getCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch req.GetString("format", formatJSON) {
	case formatJSON:
		out, err := s.catalogJSON(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	case formatOutline:
		root, err := s.svc.Catalog(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(catalog.Outline(root, req.GetString("lang", models.LocaleZhCN))), nil
	default:
		return mcp.NewToolResultError("format must be json or outline"), nil
	}
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.svc.ReadRaw(ctx, path)
	if err != nil {
		return pageError(path, err), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) renderPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.ViewPage(ctx, path)
	if err != nil {
		return pageError(path, err), nil
	}
	out, _ := json.MarshalIndent(page, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func pageError(path string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) readCatalogResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := s.catalogJSON(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogURI,
			MIMEType: "application/json",
			Text:     out,
		},
	}, nil
}

func (s *Server) readCatalogFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogFormatURI,
			MIMEType: "text/markdown",
			Text:     CatalogFormat,
		},
	}, nil
}
