package notes

import (
	"errors"
	"fmt"
)

var (
	errMissingStore      = errors.New("store is required")
	errMissingIDProvider = errors.New("id provider is required")
	errEmptyIdentifier   = errors.New("id provider returned an empty identifier")
	errDuplicateID       = errors.New("id provider returned an identifier already in use")

	// ErrUnknownTemplate indicates that no template is registered under the requested name.
	ErrUnknownTemplate = errors.New("notes: unknown template")
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opRepositoryNew       = "notes.repository.new"
	opLoad                = "notes.load"
	opAddNote             = "notes.add_note"
	opAddNoteFromTemplate = "notes.add_note_from_template"
	opUpdateNote          = "notes.update_note"
	opDeleteNote          = "notes.delete_note"
	opToggleFavorite      = "notes.toggle_favorite"
	opAddTag              = "notes.add_tag"
	opRemoveTag           = "notes.remove_tag"

	reasonMissingStore       = "missing_store"
	reasonMissingIDProvider  = "missing_id_provider"
	reasonIDGenerationFailed = "id_generation_failed"
	reasonDuplicateID        = "duplicate_id"
	reasonUnknownTemplate    = "unknown_template"
	reasonSnapshotReadFailed = "snapshot_read_failed"
	reasonSnapshotInvalid    = "snapshot_invalid"
	reasonEncodeFailed       = "encode_failed"
	reasonPersistFailed      = "persist_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
