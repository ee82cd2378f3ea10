// Package mcpserver exposes the notebook store as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/onemd/internal/apperr"
	"github.com/starford/onemd/internal/noteservice"
)

// LayoutURI names the layout contract resource.
const LayoutURI = "onemd://layout"

// Server wraps the MCP server with the notebook tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"OneMD",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("ensure_demo_data",
		mcp.WithDescription("Create the sample notebook, note and image if they do not exist yet. Safe to call repeatedly."),
	), s.ensureDemoData)

	s.mcp.AddTool(mcp.NewTool("list_notebooks",
		mcp.WithDescription("List notebooks as JSON [{name, path}], sorted by name."),
	), s.listNotebooks)

	s.mcp.AddTool(mcp.NewTool("create_notebook",
		mcp.WithDescription("Create a notebook, or return the existing one with the same sanitized name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name; slashes become underscores")),
	), s.createNotebook)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the notes of a notebook as JSON [{name, path}], sorted by name."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute notebook path from list_notebooks")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note with the default document, or return the existing one."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute notebook path")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name; slashes become underscores")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the Markdown document of a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute note path from list_notes")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Replace the Markdown document of a note. Reference images with relative images/<file> links. "+
			"Read the layout contract via get_layout_contract or the "+LayoutURI+" resource first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute note path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full new document")),
		mcp.WithString("if_match", mcp.Description("Optional checksum; the save fails if the document changed")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("save_image",
		mcp.WithDescription("Store an image in the note's images folder. Returns the relative path and a Markdown image link."),
		mcp.WithString("note_path", mcp.Required(), mcp.Description("Absolute note path")),
		mcp.WithString("file_name", mcp.Description("File name; directories are stripped, empty means image.png")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Base64 bytes or a data:<mime>;base64,<data> URI")),
	), s.saveImage)

	s.mcp.AddTool(mcp.NewTool("get_layout_contract",
		mcp.WithDescription("Returns the on-disk notebook layout contract. Call this before writing notes or images."),
	), s.getLayoutContract)

	s.mcp.AddResource(
		mcp.NewResource(LayoutURI, "Notebook Layout Contract",
			mcp.WithResourceDescription("How notebooks, notes and images are laid out on disk."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	prefix := "error"
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		prefix = "not found"
	case apperr.KindInvalidInput:
		prefix = "invalid input"
	case apperr.KindConflict:
		prefix = "conflict"
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s: %v", prefix, ae.Op, ae.Err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) ensureDemoData(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.EnsureDemoData(ctx); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) listNotebooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbs, err := s.svc.ListNotebooks(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(nbs)
}

func (s *Server) createNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nb, err := s.svc.CreateNotebook(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(nb)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbPath, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.ListNotes(ctx, nbPath)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(notes)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nbPath, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.CreateNote(ctx, nbPath, name)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(note)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notePath, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.svc.ReadNote(ctx, notePath)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notePath, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sum, err := s.svc.SaveNote(ctx, notePath, content, req.GetString("if_match", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]string{"path": notePath, "checksum": sum})
}

func (s *Server) getLayoutContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LayoutContract), nil
}

func (s *Server) readLayoutResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LayoutURI,
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}
