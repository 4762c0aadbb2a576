package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docConverter/models"
)

var ErrTaskNotFound = errors.New("task not found")

// Update carries the fields to change on a task. Nil means leave alone.
// Setting Status to completed forces progress to 100 and stamps the
// completion time; setting Error forces the failed status regardless of
// what Status was also supplied.
type Update struct {
	Status     *models.TaskStatus
	Progress   *int
	OutputPath *string
	Error      *string
}

// Store is the volatile, process-lifetime task registry. The map is the
// only shared mutable structure; the mutex is scoped to map operations and
// never held across file I/O.
type Store struct {
	logger    *zap.Logger
	retention time.Duration

	mu    sync.Mutex
	tasks map[string]*models.Task
}

func NewStore(logger *zap.Logger, retention time.Duration) *Store {
	return &Store{
		logger:    logger,
		retention: retention,
		tasks:     make(map[string]*models.Task),
	}
}

// Create registers a new pending task and returns a copy safe to read
// without the lock.
func (s *Store) Create(mode models.ConversionMode, originalFilename, inputPath string) models.Task {
	task := &models.Task{
		ID:               uuid.New().String(),
		Mode:             mode,
		OriginalFilename: originalFilename,
		Status:           models.StatusPending,
		Progress:         0,
		InputPath:        inputPath,
		CreatedAt:        time.Now(),
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	copied := *task
	s.mu.Unlock()

	return copied
}

// Get returns a copy of the task. A task past its retention window behaves
// as not-found: the entry is removed and its backing files deleted, so a
// caller never observes an expired task even between reaper sweeps.
func (s *Store) Get(id string) (models.Task, error) {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}

	if task.Expired(s.retention, time.Now()) {
		delete(s.tasks, id)
		expired := *task
		s.mu.Unlock()
		s.cleanupFiles(&expired)
		return models.Task{}, ErrTaskNotFound
	}

	copied := *task
	s.mu.Unlock()
	return copied, nil
}

// UpdateTask applies upd to the task under the store lock, so concurrent
// updates for the same id never interleave destructively. Terminal statuses
// are final: no update moves a task back to pending or processing.
func (s *Store) UpdateTask(id string, upd Update) (models.Task, error) {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}

	if task.Expired(s.retention, time.Now()) {
		delete(s.tasks, id)
		expired := *task
		s.mu.Unlock()
		s.cleanupFiles(&expired)
		return models.Task{}, ErrTaskNotFound
	}

	if upd.Progress != nil {
		task.Progress = clampProgress(*upd.Progress)
	}

	// An error wins over whatever status was supplied alongside it.
	switch {
	case upd.Error != nil:
		if !task.Status.Terminal() {
			task.ErrorMessage = *upd.Error
			task.Status = models.StatusFailed
		}
	case upd.Status != nil:
		if !task.Status.Terminal() {
			task.Status = *upd.Status
			if task.Status == models.StatusCompleted {
				now := time.Now()
				task.CompletedAt = &now
				task.Progress = 100
			}
		}
	}

	if upd.OutputPath != nil {
		task.OutputPath = *upd.OutputPath
	}

	copied := *task
	s.mu.Unlock()
	return copied, nil
}

// Delete removes the task and its backing files. The registry removal is
// authoritative; file deletion failures are swallowed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	task, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.cleanupFiles(task)
	return true
}

// CleanupExpired removes every task past the retention window and returns
// the count. Ids are snapshotted under the lock; deletion (and its file
// I/O) happens outside it.
func (s *Store) CleanupExpired() int {
	now := time.Now()
	var expired []string

	s.mu.Lock()
	for id, task := range s.tasks {
		if task.Expired(s.retention, now) {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.Delete(id)
	}
	return len(expired)
}

// cleanupFiles deletes a task's input, output, and sibling asset directory.
// Called outside the store lock.
func (s *Store) cleanupFiles(task *models.Task) {
	if task.InputPath != "" {
		if err := os.Remove(task.InputPath); err != nil && !os.IsNotExist(err) {
			s.logger.Debug("Failed to remove input file",
				zap.String("task_id", task.ID),
				zap.Error(err),
			)
		}
	}

	if task.OutputPath == "" {
		return
	}
	if err := os.Remove(task.OutputPath); err != nil && !os.IsNotExist(err) {
		s.logger.Debug("Failed to remove output file",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}

	stem := strings.TrimSuffix(task.OutputPath, filepath.Ext(task.OutputPath))
	if err := os.RemoveAll(stem + "_images"); err != nil {
		s.logger.Debug("Failed to remove images directory",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
