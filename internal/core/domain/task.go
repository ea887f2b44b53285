package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeIngestDocument extracts, chunks, embeds and indexes one file
	TaskTypeIngestDocument TaskType = "ingest_document"
	// TaskTypeRemoveDocument removes one file from index and registry
	TaskTypeRemoveDocument TaskType = "remove_document"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// TechnologyID is the technology this task belongs to
	TechnologyID string `json:"technology_id"`

	// Payload contains task-specific data
	// For ingest_document: {"filename": ..., "path": ..., "generation": ...}
	// For remove_document: {"filename": ...}
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	// CreatedAt is when the task was enqueued
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// ScheduledFor is when the task should be processed (for retries)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, technologyID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		TechnologyID: technologyID,
		Payload:      payload,
		Status:       TaskStatusPending,
		Attempts:     0,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIngestTask creates a task to ingest an assembled upload.
// The generation pins which upload of the filename this run belongs to.
func NewIngestTask(technologyID, filename, path string, generation int64) *Task {
	return NewTask(TaskTypeIngestDocument, technologyID, map[string]string{
		"filename":   filename,
		"path":       path,
		"generation": strconv.FormatInt(generation, 10),
	})
}

// NewRemoveTask creates a task to remove a file from index and registry
func NewRemoveTask(technologyID, filename string) *Task {
	return NewTask(TaskTypeRemoveDocument, technologyID, map[string]string{
		"filename": filename,
	})
}

// Filename extracts the filename from the payload
func (t *Task) Filename() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["filename"]
}

// Path extracts the assembled upload path from the payload
func (t *Task) Path() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["path"]
}

// Generation extracts the upload generation from the payload (0 if absent)
func (t *Task) Generation() int64 {
	if t.Payload == nil {
		return 0
	}
	g, _ := strconv.ParseInt(t.Payload["generation"], 10, 64)
	return g
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.UpdatedAt = now
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	// Exponential backoff: 1s, 2s, 4s, 8s, etc.
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

// TaskResult represents the outcome of processing a task
type TaskResult struct {
	TaskID   string        `json:"task_id"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Chunks   int           `json:"chunks,omitempty"`
}
