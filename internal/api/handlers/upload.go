// Package handlers implements the HTTP endpoints of the statement analyzer.
package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/dvloznov/statement-analyzer/internal/api/middleware"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/statement"
)

const (
	// UploadField is the multipart form field carrying the statement file.
	UploadField = "file"

	// GenericProcessingError is the only failure message clients see for stage errors.
	GenericProcessingError = "An internal error occurred during document processing"

	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

// uploadError is a client-side upload problem with its HTTP status.
type uploadError struct {
	status  int
	message string
}

func (e *uploadError) Error() string { return e.message }

// openUpload validates the multipart upload and opens the file part.
// The caller closes the returned file.
func openUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds the %d byte upload limit", maxBytes)}
		}
		return nil, nil, &uploadError{http.StatusBadRequest, "Expected a multipart/form-data upload"}
	}

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		return nil, nil, &uploadError{http.StatusBadRequest, "No file uploaded"}
	}
	if header.Size > maxBytes {
		file.Close()
		return nil, nil, &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds the %d byte upload limit", maxBytes)}
	}
	if err := pipeline.CheckFilename(header.Filename); err != nil {
		file.Close()
		return nil, nil, &uploadError{http.StatusBadRequest, "Unsupported file type: upload a PDF, PNG, JPG or JPEG"}
	}
	return file, header, nil
}

func writeUploadError(w http.ResponseWriter, err error) {
	var ue *uploadError
	if errors.As(err, &ue) {
		middleware.WriteError(w, ue.status, ue.message)
		return
	}
	middleware.WriteError(w, http.StatusBadRequest, "Invalid upload")
}

// writeProcessingError hides the failure detail from the client; the kind is
// still exposed in X-Error-Kind.
func writeProcessingError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrUnsupportedFile) {
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported file type: upload a PDF, PNG, JPG or JPEG")
		return
	}
	w.Header().Set("X-Error-Kind", statement.ErrorKind(err))
	middleware.WriteError(w, http.StatusInternalServerError, GenericProcessingError)
}
