package transcribe

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotAudio is returned for files that are neither sniffed nor named as audio.
var ErrNotAudio = errors.New("file is not an audio file")

// Containers that commonly carry audio-only streams but sniff as a non-audio type.
var audioContainers = map[string]string{
	"video/webm":      "audio/webm",
	"application/ogg": "audio/ogg",
	"video/mp4":       "audio/mp4",
}

// Extensions accepted when sniffing is inconclusive.
var audioExtensions = map[string]string{
	".aac":  "audio/aac",
	".aif":  "audio/aiff",
	".aiff": "audio/aiff",
	".amr":  "audio/amr",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
	".weba": "audio/webm",
	".webm": "audio/webm",
	".wma":  "audio/x-ms-wma",
}

// DetectAudio returns the audio content type of payload. The content is
// sniffed first; the filename extension is the fallback. Anything else is
// rejected with ErrNotAudio.
func DetectAudio(payload []byte, filename string) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	detected := mimetype.Detect(payload)
	for m := detected; m != nil; m = m.Parent() {
		mt := m.String()
		if strings.HasPrefix(mt, "audio/") {
			return mt, nil
		}
		if audio, ok := audioContainers[mt]; ok {
			return audio, nil
		}
	}

	if ct, ok := audioExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct, nil
	}
	return "", fmt.Errorf("%w: %s sniffed as %s", ErrNotAudio, filename, detected.String())
}
