package storage

import (
	"archive/zip"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docConverter/validation"
)

const uploadChunkSize = 1 << 20 // 1MB

// FileManager persists uploads under generated names inside the upload
// root, enforcing the size ceiling mid-stream.
type FileManager struct {
	logger      *zap.Logger
	uploadDir   string
	outputDir   string
	maxFileSize int64
}

func NewFileManager(logger *zap.Logger, uploadDir, outputDir string, maxFileSize int64) (*FileManager, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &FileManager{
		logger:      logger,
		uploadDir:   uploadDir,
		outputDir:   outputDir,
		maxFileSize: maxFileSize,
	}, nil
}

func (f *FileManager) UploadDir() string { return f.uploadDir }
func (f *FileManager) OutputDir() string { return f.outputDir }

// uniqueFilename prefixes the sanitized name with 8 hex characters so two
// uploads of "report.pdf" never collide.
func (f *FileManager) uniqueFilename(original string) string {
	sanitized := validation.SanitizeFilename(original)
	ext := filepath.Ext(sanitized)
	stem := strings.TrimSuffix(sanitized, ext)

	id := uuid.New()
	prefix := hex.EncodeToString(id[:])[:8]
	return fmt.Sprintf("%s_%s%s", prefix, stem, ext)
}

// SaveUpload streams r to a generated path inside the upload root in
// bounded chunks. Crossing the size ceiling aborts the stream, removes the
// partial file, and reports ErrFileTooLarge.
func (f *FileManager) SaveUpload(r io.Reader, filename string) (string, int64, error) {
	savePath := filepath.Join(f.uploadDir, f.uniqueFilename(filename))
	if !validation.IsContained(savePath, f.uploadDir) {
		return "", 0, fmt.Errorf("%w: upload path %s", validation.ErrPathEscape, savePath)
	}

	dst, err := os.Create(savePath)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}

	var total int64
	buf := make([]byte, uploadChunkSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > f.maxFileSize {
				f.discard(dst, savePath)
				return "", 0, validation.ErrFileTooLarge
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				f.discard(dst, savePath)
				return "", 0, fmt.Errorf("write upload file: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.discard(dst, savePath)
			return "", 0, fmt.Errorf("read upload stream: %w", rerr)
		}
	}

	if err := dst.Close(); err != nil {
		os.Remove(savePath)
		return "", 0, fmt.Errorf("close upload file: %w", err)
	}
	return savePath, total, nil
}

func (f *FileManager) discard(dst *os.File, path string) {
	dst.Close()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("Failed to remove partial upload", zap.String("path", path), zap.Error(err))
	}
}

// CreateZipBytes packs the given files into an in-memory zip archive,
// flat, under their base names.
func (f *FileManager) CreateZipBytes(paths []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, path := range paths {
		src, err := os.Open(path)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("open %s for archive: %w", filepath.Base(path), err)
		}

		w, err := zw.Create(filepath.Base(path))
		if err == nil {
			_, err = io.Copy(w, src)
		}
		src.Close()
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("archive %s: %w", filepath.Base(path), err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
