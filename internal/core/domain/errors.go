package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnsupportedFileType indicates the file extension has no extractor
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileRead indicates the file content could not be decoded or parsed
	ErrFileRead = errors.New("file read failed")

	// ErrEmptyDocument indicates extraction produced no usable text
	ErrEmptyDocument = errors.New("document is empty")

	// ErrStillProcessing indicates the technology has documents mid-ingestion
	ErrStillProcessing = errors.New("documents still processing")

	// ErrNoTechnology indicates no technology could be resolved for the request
	ErrNoTechnology = errors.New("no technology in context")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSuperseded indicates a newer upload replaced this ingestion run
	ErrSuperseded = errors.New("ingestion superseded by newer upload")

	// ErrGeneration indicates the LLM backend failed to produce an answer
	ErrGeneration = errors.New("answer generation failed")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a required backend could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
