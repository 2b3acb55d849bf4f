package application

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "benefit-gateway/pkg/domain-errors"
)

// Payload values come in two variants: inline structured fields, and
// document attachments marked by a base64 content prefix. Splitting them
// is an explicit classification step so neither path handles the other's
// shape.
const attachmentPrefix = "base64,"

// PayloadValue is one classified field of an inbound payload.
type PayloadValue struct {
	Key        string
	Structured any    // set when the value is inline data
	Attachment string // set when the value is base64 document content
}

// IsAttachment reports which variant this value is.
func (v PayloadValue) IsAttachment() bool {
	return v.Attachment != ""
}

// ClassifyPayload splits a raw payload into structured fields and
// attachments. Only string values carrying the base64 marker are
// attachments; everything else stays structured.
func ClassifyPayload(data map[string]any) (structured map[string]any, attachments []PayloadValue) {
	structured = make(map[string]any, len(data))
	for key, value := range data {
		if s, ok := value.(string); ok && strings.HasPrefix(s, attachmentPrefix) {
			attachments = append(attachments, PayloadValue{Key: key, Attachment: s})
			continue
		}
		structured[key] = value
	}
	return structured, attachments
}

// FileWriter persists attachment content and records a File row per
// attachment.
type FileWriter struct {
	dir   string
	store Store
}

func NewFileWriter(dir string, store Store) *FileWriter {
	return &FileWriter{dir: dir, store: store}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// WriteAll decodes every attachment and stores it under the uploads
// directory, recording a File row per attachment. Filenames embed the
// application id, field key and a timestamp so collisions across
// resubmissions are impossible.
func (w *FileWriter) WriteAll(ctx context.Context, applicationID string, attachments []PayloadValue) ([]File, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create uploads directory")
	}

	files := make([]File, 0, len(attachments))
	for _, att := range attachments {
		content, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(att.Attachment, attachmentPrefix))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput,
				fmt.Sprintf("decode attachment %q", att.Key))
		}

		name := fmt.Sprintf("%s_%s_%d_%d.json",
			applicationID, att.Key, time.Now().UnixMilli(), rand.Intn(1_000_000))
		name = sanitizeFilename(name)
		path := filepath.Join(w.dir, name)

		if err := os.WriteFile(path, content, 0o640); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "write attachment")
		}

		file := File{
			ID:            uuid.NewString(),
			ApplicationID: applicationID,
			Storage:       "local",
			FilePath:      path,
			CreatedAt:     time.Now().UTC(),
		}
		if err := w.store.CreateFile(ctx, &file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// sanitizeFilename lowercases and strips anything outside a safe
// filename alphabet, preserving the .json extension.
func sanitizeFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.ToLower(strings.TrimSuffix(name, ext))
	return unsafeFilenameChars.ReplaceAllString(base, "") + ext
}
