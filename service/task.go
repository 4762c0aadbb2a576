package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"docConverter/converter"
	"docConverter/dto"
	"docConverter/models"
	"docConverter/pipeline"
	"docConverter/storage"
	"docConverter/store"
	"docConverter/validation"
)

// TaskService ties submission, background execution, and retrieval
// together. The submitter gets a task id immediately; the conversion runs
// on its own goroutine and reports through the store.
type TaskService struct {
	logger       *zap.Logger
	store        *store.Store
	files        *storage.FileManager
	registry     *converter.Registry
	pipeline     *pipeline.Pipeline
	maxBatch     int
	maxTotalSize int64
}

func NewTaskService(logger *zap.Logger, st *store.Store, files *storage.FileManager, registry *converter.Registry, pipe *pipeline.Pipeline, maxBatch int, maxTotalSize int64) *TaskService {
	return &TaskService{
		logger:       logger,
		store:        st,
		files:        files,
		registry:     registry,
		pipeline:     pipe,
		maxBatch:     maxBatch,
		maxTotalSize: maxTotalSize,
	}
}

// Submit validates the request, persists the upload, registers a pending
// task, and kicks off the background conversion. It never blocks on the
// conversion itself.
func (s *TaskService) Submit(ctx context.Context, mode models.ConversionMode, filename string, file io.Reader) (models.Task, error) {
	expectedExt, err := s.registry.AcceptedExtension(mode)
	if err != nil {
		return models.Task{}, err
	}

	if filename == "" {
		filename = "unnamed"
	}
	if !strings.HasSuffix(strings.ToLower(filename), expectedExt) {
		return models.Task{}, fmt.Errorf("%w: mode %s accepts %s files", validation.ErrInvalidFileType, mode, expectedExt)
	}

	inputPath, size, err := s.files.SaveUpload(file, filename)
	if err != nil {
		if errors.Is(err, validation.ErrFileTooLarge) {
			return models.Task{}, err
		}
		return models.Task{}, fmt.Errorf("failed to save upload: %w", err)
	}

	task := s.store.Create(mode, filename, inputPath)

	s.logger.Info("Task submitted",
		zap.String("task_id", task.ID),
		zap.String("mode", string(mode)),
		zap.String("filename", filename),
		zap.Int64("size", size),
	)

	go s.process(context.WithoutCancel(ctx), task.ID)

	return task, nil
}

// process runs one conversion to completion on a background goroutine.
func (s *TaskService) process(ctx context.Context, taskID string) {
	task, err := s.store.Get(taskID)
	if err != nil {
		s.logger.Warn("Conversion skipped, task gone before start", zap.String("task_id", taskID))
		return
	}

	processing := models.StatusProcessing
	progress := 10
	if _, err := s.store.UpdateTask(taskID, store.Update{Status: &processing, Progress: &progress}); err != nil {
		return
	}

	conv, err := s.registry.Get(task.Mode)
	if err != nil {
		s.fail(taskID, err)
		return
	}

	progress = 30
	s.store.UpdateTask(taskID, store.Update{Progress: &progress})

	outputPath, err := s.pipeline.Run(ctx, conv, task.InputPath, taskID)
	if err != nil {
		s.fail(taskID, err)
		return
	}

	completed := models.StatusCompleted
	if _, err := s.store.UpdateTask(taskID, store.Update{Status: &completed, OutputPath: &outputPath}); err != nil {
		s.logger.Warn("Task gone before completion could be recorded", zap.String("task_id", taskID))
		return
	}

	s.logger.Info("Conversion finished",
		zap.String("task_id", taskID),
		zap.String("output", outputPath),
	)
}

func (s *TaskService) fail(taskID string, cause error) {
	msg := cause.Error()
	if msg == "" {
		msg = "conversion failed"
	}

	s.logger.Error("Conversion failed",
		zap.String("task_id", taskID),
		zap.String("cause", msg),
	)

	if _, err := s.store.UpdateTask(taskID, store.Update{Error: &msg}); err != nil {
		s.logger.Warn("Failure could not be recorded, task already gone", zap.String("task_id", taskID))
	}
}

// Status returns the caller-visible view of a task.
func (s *TaskService) Status(ctx context.Context, taskID string) (dto.StatusResponse, error) {
	task, err := s.store.Get(taskID)
	if err != nil {
		return dto.StatusResponse{}, err
	}

	return dto.StatusResponse{
		TaskID:      task.ID,
		Mode:        string(task.Mode),
		Status:      string(task.Status),
		Progress:    task.Progress,
		DownloadURL: task.DownloadURL(),
		Error:       task.ErrorMessage,
		Filename:    task.OriginalFilename,
	}, nil
}

// Download resolves the output file of a completed task along with the
// name it should be served under (original stem, output extension).
func (s *TaskService) Download(ctx context.Context, taskID string) (string, string, error) {
	task, err := s.store.Get(taskID)
	if err != nil {
		return "", "", err
	}

	if task.Status != models.StatusCompleted {
		if task.Status == models.StatusFailed {
			msg := task.ErrorMessage
			if msg == "" {
				msg = "conversion failed"
			}
			return "", "", converter.Errorf("%s", msg)
		}
		return "", "", converter.Errorf("conversion not finished yet (status: %s)", task.Status)
	}

	if task.OutputPath == "" {
		return "", "", converter.Errorf("conversion output file is missing")
	}
	if _, err := os.Stat(task.OutputPath); err != nil {
		return "", "", converter.Errorf("conversion output file is missing")
	}

	outputExt := filepath.Ext(task.OutputPath)
	stem := strings.TrimSuffix(task.OriginalFilename, filepath.Ext(task.OriginalFilename))
	return task.OutputPath, stem + outputExt, nil
}

// Content returns the markdown text of a completed pdf-to-md task inline,
// so callers can copy it without downloading.
func (s *TaskService) Content(ctx context.Context, taskID string) (dto.ContentResponse, error) {
	task, err := s.store.Get(taskID)
	if err != nil {
		return dto.ContentResponse{}, err
	}

	switch task.Status {
	case models.StatusPending:
		return dto.ContentResponse{}, converter.Errorf("conversion has not started yet")
	case models.StatusProcessing:
		return dto.ContentResponse{}, converter.Errorf("conversion is still in progress, try again shortly")
	case models.StatusFailed:
		msg := task.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		return dto.ContentResponse{}, converter.Errorf("conversion failed: %s", msg)
	}

	if task.OutputPath == "" {
		return dto.ContentResponse{}, converter.Errorf("conversion output file is missing")
	}
	if !strings.EqualFold(filepath.Ext(task.OutputPath), ".md") {
		return dto.ContentResponse{}, converter.Errorf("inline content is only available for markdown output, use the download endpoint")
	}

	data, err := os.ReadFile(task.OutputPath)
	if err != nil {
		return dto.ContentResponse{}, converter.Errorf("conversion output file is missing")
	}

	return dto.ContentResponse{
		TaskID:           task.ID,
		Content:          string(data),
		Format:           "gfm",
		OriginalFilename: task.OriginalFilename,
		SizeBytes:        len(data),
	}, nil
}

// DownloadBatch archives the outputs of the resolvable subset of ids. It
// fails before touching any file when the request exceeds the batch
// ceiling, and fails afterward only if nothing resolved.
func (s *TaskService) DownloadBatch(ctx context.Context, taskIDs []string) (string, []byte, error) {
	if len(taskIDs) == 0 {
		return "", nil, converter.Errorf("no tasks requested")
	}
	if len(taskIDs) > s.maxBatch {
		return "", nil, fmt.Errorf("%w: at most %d tasks per batch", validation.ErrTooManyFiles, s.maxBatch)
	}

	var paths []string
	var problems []string
	var totalSize int64

	for _, id := range taskIDs {
		task, err := s.store.Get(id)
		if err != nil {
			problems = append(problems, shortID(id)+": not found")
			continue
		}
		if task.Status != models.StatusCompleted {
			problems = append(problems, shortID(id)+": not completed")
			continue
		}

		info, err := os.Stat(task.OutputPath)
		if task.OutputPath == "" || err != nil {
			problems = append(problems, shortID(id)+": output missing")
			continue
		}

		totalSize += info.Size()
		if totalSize > s.maxTotalSize {
			return "", nil, fmt.Errorf("%w: batch exceeds total size limit", validation.ErrFileTooLarge)
		}
		paths = append(paths, task.OutputPath)
	}

	if len(paths) == 0 {
		detail := "no files available for download"
		if len(problems) > 0 {
			detail = strings.Join(problems, "; ")
		}
		return "", nil, converter.Errorf("%s", detail)
	}

	data, err := s.files.CreateZipBytes(paths)
	if err != nil {
		return "", nil, converter.Errorf("failed to build archive: %v", err)
	}

	var name string
	if len(paths) == 1 {
		base := filepath.Base(paths[0])
		name = strings.TrimSuffix(base, filepath.Ext(base)) + ".zip"
	} else {
		name = fmt.Sprintf("docconverter_download_%dfiles.zip", len(paths))
	}
	return name, data, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
