package application

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "benefit-gateway/pkg/domain-errors"
)

func TestClassifyPayloadSplitsVariants(t *testing.T) {
	structured, attachments := ClassifyPayload(map[string]any{
		"firstName":  "Asha",
		"age":        17.0,
		"marksheet":  "base64,eyJkb2MiOiJtYXJrc2hlZXQifQ==",
		"incomeCert": "base64,eyJkb2MiOiJpbmNvbWUifQ==",
	})

	assert.Equal(t, map[string]any{"firstName": "Asha", "age": 17.0}, structured)
	require.Len(t, attachments, 2)
	for _, att := range attachments {
		assert.True(t, att.IsAttachment())
	}
}

func TestClassifyPayloadPlainStringsStayStructured(t *testing.T) {
	structured, attachments := ClassifyPayload(map[string]any{
		"note": "base64 is mentioned here but this is not an attachment",
	})
	assert.Len(t, structured, 1)
	assert.Empty(t, attachments)
}

func TestFileWriterWriteAll(t *testing.T) {
	dir := t.TempDir()
	store := NewMemoryStore()
	writer := NewFileWriter(dir, store)

	raw := `{"doc":"marksheet"}`
	files, err := writer.WriteAll(context.Background(), "app-1", []PayloadValue{
		{Key: "Marksheet", Attachment: "base64," + base64.StdEncoding.EncodeToString([]byte(raw))},
	})
	require.NoError(t, err)
	require.Len(t, files, 1)

	assert.Equal(t, "local", files[0].Storage)
	assert.Equal(t, "app-1", files[0].ApplicationID)

	name := filepath.Base(files[0].FilePath)
	assert.Equal(t, name, sanitizeFilename(name), "stored name must already be sanitized")
	assert.Contains(t, name, "marksheet")

	content, err := os.ReadFile(files[0].FilePath)
	require.NoError(t, err)
	assert.Equal(t, raw, string(content), "stored file holds the decoded document, not the wire encoding")

	recorded, err := store.ListFiles(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Len(t, recorded, 1)
}

func TestFileWriterRejectsCorruptEncoding(t *testing.T) {
	writer := NewFileWriter(t.TempDir(), NewMemoryStore())
	_, err := writer.WriteAll(context.Background(), "app-1", []PayloadValue{
		{Key: "Marksheet", Attachment: "base64,not!!valid"},
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
}

func TestFileWriterNoAttachments(t *testing.T) {
	writer := NewFileWriter(t.TempDir(), NewMemoryStore())
	files, err := writer.WriteAll(context.Background(), "app-1", nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "app-1_marksheet_12.json", sanitizeFilename("App-1_Marksheet_12.json"))
	assert.Equal(t, "abc.json", sanitizeFilename("a!b@c#.json"))
}
