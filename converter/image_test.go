package converter

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func createTestJPEG(t *testing.T, width, height int, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}
	defer file.Close()

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func TestImageConverter_JPGToPNG(t *testing.T) {
	logger := zaptest.NewLogger(t)
	conv := NewImageConverter(logger, ".jpg", ".png")

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "input.jpg")
	outputPath := filepath.Join(tmpDir, "output.png")

	createTestJPEG(t, 64, 48, inputPath)

	if err := conv.Convert(context.Background(), inputPath, outputPath, "task-1"); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open output file: %v", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("Failed to decode output as PNG: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 48 {
		t.Errorf("Expected dimensions 64x48, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestImageConverter_InvalidInputPath(t *testing.T) {
	logger := zaptest.NewLogger(t)
	conv := NewImageConverter(logger, ".jpg", ".png")

	err := conv.Convert(context.Background(), "/nonexistent/input.jpg", filepath.Join(t.TempDir(), "out.png"), "task-1")
	if err == nil {
		t.Fatal("Expected error for non-existent input file, got nil")
	}
}

func TestImageConverter_UnsupportedOutputFormat(t *testing.T) {
	logger := zaptest.NewLogger(t)
	conv := NewImageConverter(logger, ".jpg", ".webp")

	tmpDir := t.TempDir()
	inputPath := filepath.Join(tmpDir, "input.jpg")
	createTestJPEG(t, 8, 8, inputPath)

	err := conv.Convert(context.Background(), inputPath, filepath.Join(tmpDir, "out.webp"), "task-1")
	if err == nil {
		t.Fatal("Expected error for unsupported output format, got nil")
	}
}
