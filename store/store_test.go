package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"docConverter/models"
)

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }
func intPtr(i int) *int                                { return &i }
func strPtr(s string) *string                          { return &s }

func TestStore_CreateAndGet(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)

	task := s.Create(models.ModeMarkdownToHTML, "notes.md", "/tmp/in/notes.md")
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, 0, task.Progress)

	got, err := s.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "notes.md", got.OriginalFilename)
}

func TestStore_GetUnknown(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)

	_, err := s.Get("no-such-id")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestStore_ConcurrentCreateUniqueIDs(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)

	const n = 64
	ids := make([]string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = s.Create(models.ModePDFToMarkdown, "doc.pdf", "").ID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestStore_UpdateProgressClamped(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)
	task := s.Create(models.ModePDFToMarkdown, "doc.pdf", "")

	got, err := s.UpdateTask(task.ID, Update{Progress: intPtr(150)})
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)

	got, err = s.UpdateTask(task.ID, Update{Progress: intPtr(-5)})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)
}

func TestStore_CompletedForcesFullProgress(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)
	task := s.Create(models.ModePDFToMarkdown, "doc.pdf", "")

	got, err := s.UpdateTask(task.ID, Update{
		Status:     statusPtr(models.StatusCompleted),
		OutputPath: strPtr("/tmp/out/doc.md"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, "/tmp/out/doc.md", got.OutputPath)
}

func TestStore_ErrorForcesFailed(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)
	task := s.Create(models.ModePDFToMarkdown, "doc.pdf", "")

	// Error wins even when the same update also asks for processing.
	got, err := s.UpdateTask(task.ID, Update{
		Status: statusPtr(models.StatusProcessing),
		Error:  strPtr("engine exploded"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "engine exploded", got.ErrorMessage)
}

func TestStore_ErrorWinsOverCompleted(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)
	task := s.Create(models.ModePDFToMarkdown, "doc.pdf", "")

	got, err := s.UpdateTask(task.ID, Update{
		Status: statusPtr(models.StatusCompleted),
		Error:  strPtr("engine exploded"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "engine exploded", got.ErrorMessage)
	assert.Nil(t, got.CompletedAt)
}

func TestStore_CompletedOverridesSuppliedProgress(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)
	task := s.Create(models.ModePDFToMarkdown, "doc.pdf", "")

	got, err := s.UpdateTask(task.ID, Update{
		Status:   statusPtr(models.StatusCompleted),
		Progress: intPtr(50),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
}

func TestStore_TerminalStatusIsFinal(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), time.Hour)
	task := s.Create(models.ModePDFToMarkdown, "doc.pdf", "")

	_, err := s.UpdateTask(task.ID, Update{Status: statusPtr(models.StatusFailed), Error: strPtr("boom")})
	require.NoError(t, err)

	got, err := s.UpdateTask(task.ID, Update{Status: statusPtr(models.StatusProcessing)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)

	got, err = s.UpdateTask(task.ID, Update{Error: strPtr("another error")})
	require.NoError(t, err)
	assert.Equal(t, "boom", got.ErrorMessage)
}

func TestStore_LazyExpiryOnGet(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.md")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))

	s := NewStore(zaptest.NewLogger(t), 10*time.Millisecond)
	task := s.Create(models.ModeMarkdownToHTML, "in.md", input)

	time.Sleep(20 * time.Millisecond)

	_, err := s.Get(task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.NoFileExists(t, input)

	// Entry is gone, not just hidden.
	_, err = s.UpdateTask(task.ID, Update{Progress: intPtr(50)})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestStore_DeleteRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	output := filepath.Join(dir, "in.md")
	imagesDir := filepath.Join(dir, "in_images")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(output, []byte("y"), 0o644))
	require.NoError(t, os.Mkdir(imagesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(imagesDir, "img-000.png"), []byte("z"), 0o644))

	s := NewStore(zaptest.NewLogger(t), time.Hour)
	task := s.Create(models.ModePDFToMarkdown, "in.pdf", input)
	_, err := s.UpdateTask(task.ID, Update{
		Status:     statusPtr(models.StatusCompleted),
		OutputPath: strPtr(output),
	})
	require.NoError(t, err)

	assert.True(t, s.Delete(task.ID))
	assert.NoFileExists(t, input)
	assert.NoFileExists(t, output)
	assert.NoDirExists(t, imagesDir)

	assert.False(t, s.Delete(task.ID))
}

func TestStore_CleanupExpired(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t), 10*time.Millisecond)

	old1 := s.Create(models.ModePDFToMarkdown, "a.pdf", "")
	old2 := s.Create(models.ModePDFToMarkdown, "b.pdf", "")
	time.Sleep(20 * time.Millisecond)
	fresh := s.Create(models.ModePDFToMarkdown, "c.pdf", "")

	assert.Equal(t, 2, s.CleanupExpired())

	_, err := s.Get(old1.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = s.Get(old2.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = s.Get(fresh.ID)
	assert.NoError(t, err)
}
