package domain

import (
	"errors"
	"fmt"
)

// Pipeline failures. Every one of them aborts the current run.
var (
	// ErrConnection indicates the store could not be reached or rejected the credential.
	ErrConnection = errors.New("store connection failed")

	// ErrDocumentRead indicates the source document is unreadable.
	ErrDocumentRead = errors.New("document read failed")

	// ErrModelLoad indicates the embedding model could not be loaded.
	ErrModelLoad = errors.New("embedding model unavailable")

	// ErrEncode indicates the model failed on the batch or returned a malformed result.
	ErrEncode = errors.New("embedding failed")

	// ErrProvision indicates the existence check or create call failed.
	ErrProvision = errors.New("collection provisioning failed")

	// ErrWrite indicates the upsert failed at the transport level.
	ErrWrite = errors.New("write failed")

	// ErrCollectionMissing indicates the target collection was absent at write time.
	ErrCollectionMissing = errors.New("collection missing")

	// ErrInvalidInput indicates malformed configuration or arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// Pipeline stage names used in StageError.
const (
	StageConnect   = "connect"
	StageRead      = "read"
	StageSegment   = "segment"
	StageEmbed     = "embed"
	StageProvision = "provision"
	StageWrite     = "write"
)

// StageError names the pipeline step that aborted a run.
//
// The underlying error can be accessed via errors.Unwrap.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest aborted at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// AtStage wraps err with the stage it occurred in. A nil err stays nil and
// an error already carrying a stage is returned unchanged.
func AtStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
