package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	now := time.Date(2024, 2, 9, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))

	assert.Equal(t, "uploads/2024/02/10/abc-march.pdf", ObjectName(now, "abc", "march.pdf"))
	assert.Equal(t, "uploads/2024/02/10/abc-march.pdf", ObjectName(now, "abc", "../../etc/march.pdf"))
	assert.Equal(t, "uploads/2024/02/10/abc-scan.png", ObjectName(now, "abc", `C:\Users\me\scan.png`))
	assert.Equal(t, "uploads/2024/02/10/abc-upload", ObjectName(now, "abc", ""))
}

func TestParseURI(t *testing.T) {
	bucket, object, err := ParseURI("gs://my-bucket/uploads/2024/01/01/x-file.pdf")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "uploads/2024/01/01/x-file.pdf", object)

	for _, bad := range []string{"", "s3://bucket/key", "gs://bucket", "gs://bucket/", "gs:///key"} {
		_, _, err := ParseURI(bad)
		assert.Error(t, err, "uri %q", bad)
	}
}

func TestFilenameFromURI(t *testing.T) {
	assert.Equal(t, "file.pdf", FilenameFromURI("gs://bucket/folder/file.pdf"))
	assert.Equal(t, "bucket", FilenameFromURI("gs://bucket"))
}

func TestNewGCSArchiver_RequiresBucket(t *testing.T) {
	_, err := NewGCSArchiver(context.Background(), "")
	assert.Error(t, err)
}

func TestGCSArchiver_FetchRejectsBadURI(t *testing.T) {
	a := &GCSArchiver{}
	_, err := a.Fetch(context.Background(), "not-a-uri")
	assert.ErrorContains(t, err, "invalid GCS URI")
}
