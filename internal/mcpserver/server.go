// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only workspace tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/parser"
	"github.com/starford/scribe/internal/workspace"
)

const searchLimit = 50

// Server wraps the MCP server with workspace tools.
type Server struct {
	mcp *server.MCPServer
	ws  *workspace.Workspace
}

type documentItem struct {
	ID       models.DocumentID `json:"id"`
	Title    string            `json:"title"`
	Path     string            `json:"path,omitempty"`
	IsNew    bool              `json:"is_new"`
	IsLoaded bool              `json:"is_loaded"`
}

type documentContent struct {
	documentItem
	Body    string         `json:"body"`
	Outline *parser.Result `json:"outline"`
}

// New creates a new MCP server with all workspace tools registered.
func New(ws *workspace.Workspace, version string) *Server {
	s := &Server{ws: ws}

	s.mcp = server.NewMCPServer(
		"Scribe",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List every known document with its id, title and path."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Find documents whose title contains the query (case-sensitive)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Title substring")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the body and outline (frontmatter, headings, tags, wikilinks) of a document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id from list_documents or search_documents")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("get_workspace_state",
		mcp.WithDescription("Return open tabs, the active document and the ids with unsaved edits."),
	), s.getWorkspaceState)

	s.mcp.AddTool(mcp.NewTool("get_document_guide",
		mcp.WithDescription("Explain document ids, states and search semantics."),
	), s.getDocumentGuide)

	s.mcp.AddResource(
		mcp.NewResource(DocumentGuideURI, "Document Guide",
			mcp.WithResourceDescription("How the workspace identifies and tracks documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentGuideResource,
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

func newItem(d models.Document) documentItem {
	return documentItem{ID: d.ID, Title: d.Title, Path: d.Path, IsNew: d.IsNew, IsLoaded: d.IsLoaded}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs := s.ws.Documents()
	items := make([]documentItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, newItem(d))
	}
	return jsonResult(items)
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs := s.ws.Search(query)
	if len(docs) > searchLimit {
		docs = docs[:searchLimit]
	}
	items := make([]documentItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, newItem(d))
	}
	return jsonResult(items)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.ws.EnsureLoaded(ctx, models.DocumentID(id))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(documentContent{
		documentItem: newItem(doc),
		Body:         doc.Body,
		Outline:      parser.Parse([]byte(doc.Body)),
	})
}

func (s *Server) getWorkspaceState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := s.ws.Snapshot()
	return jsonResult(map[string]any{
		"documents": len(state.Documents),
		"open_tabs": state.OpenTabs,
		"active_id": state.ActiveID,
		"unsaved":   state.Unsaved,
	})
}

func (s *Server) getDocumentGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentGuide), nil
}

func (s *Server) readDocumentGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentGuideURI,
			MIMEType: "text/markdown",
			Text:     DocumentGuide,
		},
	}, nil
}
