package transcribe

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultFilename = "audio"

// Request is a single transcription submission. It is built by the caller
// and consumed once by a Submitter.
type Request struct {
	// Payload is the raw audio. Callers must not submit an empty payload.
	Payload []byte
	// Filename names the multipart file part. Defaults to "audio".
	Filename string
	// ContentType labels the file part. Defaults to application/octet-stream.
	ContentType string
	Language    Language
}

// NewRequestFromFile reads path into a Request. Empty and non-audio files
// are refused.
func NewRequestFromFile(path string, lang Language) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("read audio file: %w", err)
	}
	if len(data) == 0 {
		return Request{}, fmt.Errorf("audio file %s: %w", path, ErrEmptyPayload)
	}

	name := filepath.Base(path)
	contentType, err := DetectAudio(data, name)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Payload:     data,
		Filename:    name,
		ContentType: contentType,
		Language:    lang,
	}, nil
}

func (r Request) contentType() string {
	if r.ContentType == "" {
		return "application/octet-stream"
	}
	return r.ContentType
}

func (r Request) filename() string {
	if r.Filename == "" {
		return defaultFilename
	}
	return r.Filename
}
