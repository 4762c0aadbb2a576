package converter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"docConverter/storage"
)

// PDFConverter extracts text (and images, when pdfimages is present) from a
// PDF using the poppler command-line tools and writes a Markdown document.
// The external engine is resolved lazily through the registry builder so a
// missing binary is a reportable condition, not a startup crash.
type PDFConverter struct {
	logger    *zap.Logger
	pdftotext string
	pdfimages string // empty when unavailable; image extraction is skipped
	assets    storage.AssetUploader
}

// NewPDFConverter resolves the external binaries. pdftotext is required;
// its absence fails construction with ErrBackendUnavailable so the registry
// retries on the next use instead of caching a poisoned instance.
func NewPDFConverter(logger *zap.Logger, pdftotextBin, pdfimagesBin string, assets storage.AssetUploader) (*PDFConverter, error) {
	textPath, err := exec.LookPath(pdftotextBin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrBackendUnavailable, pdftotextBin)
	}

	imagesPath, err := exec.LookPath(pdfimagesBin)
	if err != nil {
		logger.Warn("pdfimages not found, image extraction disabled",
			zap.String("binary", pdfimagesBin),
		)
		imagesPath = ""
	}

	return &PDFConverter{
		logger:    logger,
		pdftotext: textPath,
		pdfimages: imagesPath,
		assets:    assets,
	}, nil
}

func (c *PDFConverter) InputExtension() string  { return ".pdf" }
func (c *PDFConverter) OutputExtension() string { return ".md" }

func (c *PDFConverter) Convert(ctx context.Context, inputPath, outputPath, taskID string) error {
	c.logger.Info("Starting PDF conversion",
		zap.String("task_id", taskID),
		zap.String("input", inputPath),
	)

	text, err := c.extractText(ctx, inputPath)
	if err != nil {
		return err
	}

	images, err := c.extractImages(ctx, inputPath)
	if err != nil {
		// Text extraction succeeded; continue without images.
		c.logger.Warn("Image extraction failed, continuing without images",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		images = nil
	}

	if len(images) > 0 {
		text += c.renderImageSection(ctx, images, outputPath, taskID)
	}

	if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
		return Errorf("failed to write markdown: %v", err)
	}

	c.logger.Info("PDF conversion completed",
		zap.String("task_id", taskID),
		zap.String("output", outputPath),
		zap.Int("images", len(images)),
	)
	return nil
}

func (c *PDFConverter) extractText(ctx context.Context, inputPath string) (string, error) {
	tmp, err := os.CreateTemp("", "docconvert-*.txt")
	if err != nil {
		return "", Errorf("failed to create temp file: %v", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.pdftotext, "-layout", inputPath, tmp.Name())
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", Errorf("pdftotext failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", Errorf("failed to read extracted text: %v", err)
	}
	return string(data), nil
}

func (c *PDFConverter) extractImages(ctx context.Context, inputPath string) (map[string][]byte, error) {
	if c.pdfimages == "" {
		return nil, nil
	}

	tmpDir, err := os.MkdirTemp("", "docconvert-images-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.pdfimages, "-png", inputPath, filepath.Join(tmpDir, "image"))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdfimages failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("read images dir: %w", err)
	}

	images := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(tmpDir, entry.Name()))
		if err != nil {
			continue
		}
		images[entry.Name()] = data
	}
	return images, nil
}

// renderImageSection uploads extracted images or saves them beside the
// output, and returns a Markdown section linking to them. Upload failures
// degrade to local storage; the conversion itself never fails here.
func (c *PDFConverter) renderImageSection(ctx context.Context, images map[string][]byte, outputPath, taskID string) string {
	urls := c.placeImages(ctx, images, outputPath, taskID)
	if len(urls) == 0 {
		return ""
	}

	names := make([]string, 0, len(urls))
	for name := range urls {
		names = append(names, name)
	}
	sort.Strings(names)

	var section strings.Builder
	section.WriteString("\n## Extracted Images\n\n")
	for _, name := range names {
		fmt.Fprintf(&section, "![%s](%s)\n", name, urls[name])
	}
	return section.String()
}

func (c *PDFConverter) placeImages(ctx context.Context, images map[string][]byte, outputPath, taskID string) map[string]string {
	if c.assets != nil {
		urls, err := c.assets.UploadMany(ctx, images, taskID)
		if err == nil && len(urls) > 0 {
			return urls
		}
		c.logger.Warn("Asset upload failed, falling back to local storage",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}
	return c.saveImagesLocal(images, outputPath)
}

// saveImagesLocal writes images into the sibling <output-stem>_images
// directory and returns relative links.
func (c *PDFConverter) saveImagesLocal(images map[string][]byte, outputPath string) map[string]string {
	stem := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	dirName := stem + "_images"
	imagesDir := filepath.Join(filepath.Dir(outputPath), dirName)

	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		c.logger.Error("Failed to create images directory", zap.Error(err))
		return nil
	}

	urls := make(map[string]string, len(images))
	for name, data := range images {
		if err := os.WriteFile(filepath.Join(imagesDir, name), data, 0o644); err != nil {
			c.logger.Error("Failed to save image",
				zap.String("asset", name),
				zap.Error(err),
			)
			continue
		}
		urls[name] = dirName + "/" + name
	}
	return urls
}
