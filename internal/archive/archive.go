// Package archive keeps a durable copy of uploaded statements in Google Cloud Storage.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
)

// Archiver stores original uploads and reads them back.
type Archiver interface {
	// Archive uploads the local file and returns its gs:// URI.
	Archive(ctx context.Context, localPath, filename string) (string, error)

	// Fetch downloads the bytes behind a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ObjectName builds uploads/YYYY/MM/DD/<id>-<filename>.
func ObjectName(now time.Time, id, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("uploads/%s/%s-%s", now.UTC().Format("2006/01/02"), id, base)
}

// ParseURI splits gs://bucket/object into its bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI returns the last path element of a GCS URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
