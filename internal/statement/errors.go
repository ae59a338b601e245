package statement

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDocumentUnreadable means the structuring stage could not read the file at all.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrEmptyDocument means structuring produced no pages or extraction received none.
	ErrEmptyDocument = errors.New("cannot process an empty document")

	// ErrInvalidExtraction means the extractor output failed the schema gate.
	ErrInvalidExtraction = errors.New("invalid extraction")

	// ErrPersistence means the persistence mirror rejected the write.
	ErrPersistence = errors.New("persistence failed")

	// ErrStatementNotFound is returned by repositories for unknown statement IDs.
	ErrStatementNotFound = errors.New("statement not found")
)

// Violation is a single schema problem at a JSON path such as "transactions[3].debit".
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// InvalidExtractionError carries every violation found by the schema gate.
type InvalidExtractionError struct {
	Violations []Violation
}

func (e *InvalidExtractionError) Error() string {
	if len(e.Violations) == 0 {
		return ErrInvalidExtraction.Error()
	}
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidExtraction, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrInvalidExtraction) hold.
func (e *InvalidExtractionError) Is(target error) bool {
	return target == ErrInvalidExtraction
}

// Error kinds reported in logs and the X-Error-Kind response header.
const (
	KindDocumentUnreadable = "document_unreadable"
	KindEmptyDocument      = "empty_document"
	KindInvalidExtraction  = "invalid_extraction"
	KindPersistence        = "persistence_failed"
	KindNotFound           = "not_found"
	KindInternal           = "internal"
)

// ErrorKind maps an error chain to a stable kind string.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDocumentUnreadable):
		return KindDocumentUnreadable
	case errors.Is(err, ErrEmptyDocument):
		return KindEmptyDocument
	case errors.Is(err, ErrInvalidExtraction):
		return KindInvalidExtraction
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrStatementNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
