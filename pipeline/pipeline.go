package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"docConverter/converter"
	"docConverter/validation"
)

// Pipeline drives one conversion end-to-end: input validation, containment
// checks on both sides, backend invocation, and output verification.
type Pipeline struct {
	logger    *zap.Logger
	uploadDir string
	outputDir string
}

func New(logger *zap.Logger, uploadDir, outputDir string) *Pipeline {
	return &Pipeline{
		logger:    logger,
		uploadDir: uploadDir,
		outputDir: outputDir,
	}
}

// Run converts inputPath with conv and returns the verified output path.
// Validation failures surface as validation errors; every other failure is
// normalized into a single conversion-failure condition with a readable
// cause.
func (p *Pipeline) Run(ctx context.Context, conv converter.Converter, inputPath, taskID string) (string, error) {
	if err := validation.ValidateForConversion(inputPath, conv.InputExtension()); err != nil {
		if errors.Is(err, validation.ErrInvalidFileType) {
			return "", err
		}
		return "", converter.Errorf("input validation failed: %v", err)
	}

	if !validation.IsContained(inputPath, p.uploadDir) {
		return "", fmt.Errorf("%w: input %s outside upload root", validation.ErrPathEscape, inputPath)
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", converter.Errorf("failed to create output directory: %v", err)
	}

	outputPath, err := p.outputPathFor(inputPath, conv.OutputExtension())
	if err != nil {
		return "", err
	}

	// The caller already runs this off the request-serving path, so a slow
	// backend never stalls status queries.
	if err := conv.Convert(ctx, inputPath, outputPath, taskID); err != nil {
		var convErr *converter.Error
		if errors.As(err, &convErr) {
			return "", err
		}
		return "", converter.Errorf("conversion error: %v", err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return "", converter.Errorf("conversion produced no output file")
	}

	p.logger.Info("Conversion pipeline finished",
		zap.String("task_id", taskID),
		zap.String("output", outputPath),
	)
	return outputPath, nil
}

// outputPathFor derives the output location from the sanitized stem of the
// input name plus the converter's declared extension, and refuses anything
// that would land outside the output root.
func (p *Pipeline) outputPathFor(inputPath, outputExt string) (string, error) {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	safeStem := validation.SanitizeFilename(stem)

	outputPath := filepath.Join(p.outputDir, safeStem+outputExt)
	if !validation.IsContained(outputPath, p.outputDir) {
		return "", fmt.Errorf("%w: derived output %s outside output root", validation.ErrPathEscape, outputPath)
	}
	return outputPath, nil
}
