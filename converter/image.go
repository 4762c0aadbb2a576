package converter

import (
	"context"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const jpegQuality = 85

// ImageConverter re-encodes raster images between formats. The format pair
// is fixed per instance and declared through the extension metadata.
type ImageConverter struct {
	logger    *zap.Logger
	inputExt  string
	outputExt string
}

func NewImageConverter(logger *zap.Logger, inputExt, outputExt string) *ImageConverter {
	return &ImageConverter{
		logger:    logger,
		inputExt:  inputExt,
		outputExt: outputExt,
	}
}

func (c *ImageConverter) InputExtension() string  { return c.inputExt }
func (c *ImageConverter) OutputExtension() string { return c.outputExt }

func (c *ImageConverter) Convert(ctx context.Context, inputPath, outputPath, taskID string) error {
	c.logger.Info("Starting image conversion",
		zap.String("task_id", taskID),
		zap.String("input", inputPath),
		zap.String("output", outputPath),
	)

	src, err := imaging.Open(inputPath)
	if err != nil {
		return Errorf("failed to open image: %v", err)
	}

	switch strings.ToLower(c.outputExt) {
	case ".jpg", ".jpeg":
		err = imaging.Save(src, outputPath, imaging.JPEGQuality(jpegQuality))
	case ".png", ".gif":
		err = imaging.Save(src, outputPath)
	default:
		return Errorf("unsupported image output format: %s", c.outputExt)
	}
	if err != nil {
		return Errorf("failed to save %s: %v", c.outputExt, err)
	}

	c.logger.Info("Image conversion completed",
		zap.String("task_id", taskID),
		zap.String("output", outputPath),
	)
	return nil
}
