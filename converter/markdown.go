package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

const htmlPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`

// MarkdownConverter renders GitHub-flavored Markdown to a standalone HTML
// document.
type MarkdownConverter struct {
	logger *zap.Logger
	md     goldmark.Markdown
}

func NewMarkdownConverter(logger *zap.Logger) *MarkdownConverter {
	return &MarkdownConverter{
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (c *MarkdownConverter) InputExtension() string  { return ".md" }
func (c *MarkdownConverter) OutputExtension() string { return ".html" }

func (c *MarkdownConverter) Convert(ctx context.Context, inputPath, outputPath, taskID string) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return Errorf("failed to read markdown: %v", err)
	}

	var body bytes.Buffer
	if err := c.md.Convert(src, &body); err != nil {
		return Errorf("markdown rendering failed: %v", err)
	}

	title := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	page := fmt.Sprintf(htmlPage, title, body.String())

	if err := os.WriteFile(outputPath, []byte(page), 0o644); err != nil {
		return Errorf("failed to write html: %v", err)
	}

	c.logger.Info("Markdown conversion completed",
		zap.String("task_id", taskID),
		zap.String("output", outputPath),
	)
	return nil
}
