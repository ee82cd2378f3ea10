package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/onemd/internal/markdown"
)

const maxImageSize = 50 << 20

var mimeToExt = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
}

type saveImageResult struct {
	Path     string `json:"path"`
	Markdown string `json:"markdown"`
}

func (s *Server) saveImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notePath, err := req.RequireString("note_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fileName := req.GetString("file_name", "")

	data, ext, err := decodeImageData(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxImageSize {
		return mcp.NewToolResultError(fmt.Sprintf("image too large: %d bytes (max %d)", len(data), maxImageSize)), nil
	}
	if fileName == "" && ext != "" {
		fileName = "image" + ext
	}

	rel, err := s.svc.SaveImage(ctx, notePath, fileName, data)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(saveImageResult{
		Path:     rel,
		Markdown: markdown.ImageLink(strings.TrimSuffix(path.Base(rel), path.Ext(rel)), rel),
	})
}

// decodeImageData accepts plain base64 or a data URI. For data URIs the
// extension implied by the media type is returned too.
func decodeImageData(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "data:") {
		return decodeDataURI(raw)
	}
	data, err := decodeBase64(raw)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}
	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, "", err
	}
	mime, _, _ := strings.Cut(strings.TrimSuffix(meta, ";base64"), ";")
	return data, mimeToExt[strings.ToLower(mime)], nil
}

func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}
