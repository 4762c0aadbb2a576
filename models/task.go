package models

import (
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type ConversionMode string

const (
	ModePDFToMarkdown  ConversionMode = "pdf-to-md"
	ModeMarkdownToHTML ConversionMode = "md-to-html"
	ModePNGToJPG       ConversionMode = "png-to-jpg"
	ModeJPGToPNG       ConversionMode = "jpg-to-png"
)

type Task struct {
	ID               string
	Mode             ConversionMode
	OriginalFilename string
	Status           TaskStatus
	Progress         int
	InputPath        string
	OutputPath       string
	ErrorMessage     string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// Expired reports whether the task's age exceeds the retention window.
func (t *Task) Expired(retention time.Duration, now time.Time) bool {
	return now.Sub(t.CreatedAt) > retention
}

// DownloadURL returns the download endpoint for a finished task,
// or "" while no output is available.
func (t *Task) DownloadURL() string {
	if t.Status == StatusCompleted && t.OutputPath != "" {
		return "/api/download/" + t.ID
	}
	return ""
}
