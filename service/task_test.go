package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"docConverter/converter"
	"docConverter/models"
	"docConverter/pipeline"
	"docConverter/storage"
	"docConverter/store"
	"docConverter/validation"
)

// passthroughConverter copies markdown input to an HTML output so the whole
// submit-process-download path can run without external binaries.
type passthroughConverter struct{}

func (passthroughConverter) InputExtension() string  { return ".md" }
func (passthroughConverter) OutputExtension() string { return ".html" }
func (passthroughConverter) Convert(ctx context.Context, inputPath, outputPath, taskID string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return converter.Errorf("read input: %v", err)
	}
	return os.WriteFile(outputPath, append([]byte("<pre>"), data...), 0o644)
}

func newTestService(t *testing.T) *TaskService {
	t.Helper()
	logger := zaptest.NewLogger(t)

	files, err := storage.NewFileManager(logger, t.TempDir(), t.TempDir(), 1<<20)
	require.NoError(t, err)

	registry := converter.NewRegistry()
	registry.Register(models.ModeMarkdownToHTML, ".md", ".html", func() (converter.Converter, error) {
		return passthroughConverter{}, nil
	})

	st := store.NewStore(logger, time.Hour)
	pipe := pipeline.New(logger, files.UploadDir(), files.OutputDir())

	return NewTaskService(logger, st, files, registry, pipe, 20, 100<<20)
}

func waitForTerminal(t *testing.T, s *TaskService, taskID string) models.TaskStatus {
	t.Helper()
	var last models.TaskStatus
	require.Eventually(t, func() bool {
		resp, err := s.Status(context.Background(), taskID)
		if err != nil {
			return false
		}
		last = models.TaskStatus(resp.Status)
		return last.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return last
}

func TestSubmit_UnsupportedMode(t *testing.T) {
	s := newTestService(t)

	_, err := s.Submit(context.Background(), models.ConversionMode("docx-to-pdf"), "a.docx", strings.NewReader("x"))
	assert.ErrorIs(t, err, converter.ErrUnsupportedMode)
}

func TestSubmit_ExtensionMismatch(t *testing.T) {
	s := newTestService(t)

	_, err := s.Submit(context.Background(), models.ModeMarkdownToHTML, "a.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, validation.ErrInvalidFileType)
}

func TestSubmit_EndToEnd(t *testing.T) {
	s := newTestService(t)

	task, err := s.Submit(context.Background(), models.ModeMarkdownToHTML, "notes.md", strings.NewReader("# hi\n"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)

	status := waitForTerminal(t, s, task.ID)
	require.Equal(t, models.StatusCompleted, status)

	resp, err := s.Status(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Progress)
	assert.Equal(t, "/api/download/"+task.ID, resp.DownloadURL)

	path, name, err := s.Download(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.html", name)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<pre># hi\n", string(data))
}

func TestSubmit_InvalidContentFailsTask(t *testing.T) {
	s := newTestService(t)

	task, err := s.Submit(context.Background(), models.ModeMarkdownToHTML, "blob.md", bytes.NewReader([]byte{0x00, 0xFF}))
	require.NoError(t, err)

	status := waitForTerminal(t, s, task.ID)
	require.Equal(t, models.StatusFailed, status)

	resp, err := s.Status(context.Background(), task.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.DownloadURL)
}

func TestDownload_NotFinished(t *testing.T) {
	s := newTestService(t)

	// Seed a task directly so no goroutine races the assertion.
	task := s.store.Create(models.ModeMarkdownToHTML, "notes.md", "")

	_, _, err := s.Download(context.Background(), task.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not finished")
}

func TestDownload_UnknownTask(t *testing.T) {
	s := newTestService(t)

	_, _, err := s.Download(context.Background(), "no-such-task")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestContent_NonMarkdownOutput(t *testing.T) {
	s := newTestService(t)

	task, err := s.Submit(context.Background(), models.ModeMarkdownToHTML, "notes.md", strings.NewReader("# hi\n"))
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, waitForTerminal(t, s, task.ID))

	_, err = s.Content(context.Background(), task.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "markdown output")
}

func TestContent_MarkdownOutput(t *testing.T) {
	s := newTestService(t)

	// Point a completed task at a markdown file by hand; the passthrough
	// mode produces HTML, which Content refuses.
	dir := t.TempDir()
	outputPath := dir + "/doc.md"
	require.NoError(t, os.WriteFile(outputPath, []byte("# extracted\n"), 0o644))

	task := s.store.Create(models.ModePDFToMarkdown, "doc.pdf", "")
	completed := models.StatusCompleted
	_, err := s.store.UpdateTask(task.ID, store.Update{Status: &completed, OutputPath: &outputPath})
	require.NoError(t, err)

	resp, err := s.Content(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "# extracted\n", resp.Content)
	assert.Equal(t, "gfm", resp.Format)
	assert.Equal(t, len("# extracted\n"), resp.SizeBytes)
}

func TestDownloadBatch_TooMany(t *testing.T) {
	s := newTestService(t)

	ids := make([]string, 21)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%d", i)
	}

	_, _, err := s.DownloadBatch(context.Background(), ids)
	assert.ErrorIs(t, err, validation.ErrTooManyFiles)
}

func TestDownloadBatch_Empty(t *testing.T) {
	s := newTestService(t)

	_, _, err := s.DownloadBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestDownloadBatch_NothingResolvable(t *testing.T) {
	s := newTestService(t)

	_, _, err := s.DownloadBatch(context.Background(), []string{"ghost-1", "ghost-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDownloadBatch_PartialSubset(t *testing.T) {
	s := newTestService(t)

	task, err := s.Submit(context.Background(), models.ModeMarkdownToHTML, "notes.md", strings.NewReader("# hi\n"))
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, waitForTerminal(t, s, task.ID))

	name, data, err := s.DownloadBatch(context.Background(), []string{task.ID, "ghost"})
	require.NoError(t, err)
	// Output names carry the unique upload prefix.
	assert.True(t, strings.HasSuffix(name, "_notes.zip"), "unexpected archive name %q", name)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.True(t, strings.HasSuffix(zr.File[0].Name, "_notes.html"), "unexpected entry %q", zr.File[0].Name)
}

func TestDownloadBatch_TotalSizeCeiling(t *testing.T) {
	logger := zaptest.NewLogger(t)
	files, err := storage.NewFileManager(logger, t.TempDir(), t.TempDir(), 1<<20)
	require.NoError(t, err)

	registry := converter.NewRegistry()
	registry.Register(models.ModeMarkdownToHTML, ".md", ".html", func() (converter.Converter, error) {
		return passthroughConverter{}, nil
	})

	st := store.NewStore(logger, time.Hour)
	pipe := pipeline.New(logger, files.UploadDir(), files.OutputDir())
	s := NewTaskService(logger, st, files, registry, pipe, 20, 4)

	task, err := s.Submit(context.Background(), models.ModeMarkdownToHTML, "notes.md", strings.NewReader("# a much longer body\n"))
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, waitForTerminal(t, s, task.ID))

	_, _, err = s.DownloadBatch(context.Background(), []string{task.ID})
	assert.ErrorIs(t, err, validation.ErrFileTooLarge)
}
