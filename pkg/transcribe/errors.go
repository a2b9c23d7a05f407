package transcribe

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the transcription service.
type ErrorKind string

const (
	// KindTransport covers network failures and HTTP-level timeouts.
	KindTransport ErrorKind = "transport"
	// KindRejected means the service answered with a non-success status.
	KindRejected ErrorKind = "rejected"
	// KindMalformedResponse means a success status with an unusable body.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindJobFailed means the service reported the job itself as failed.
	KindJobFailed ErrorKind = "job_failed"
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrTransport         = errors.New("transport error")
	ErrRejected          = errors.New("request rejected")
	ErrMalformedResponse = errors.New("malformed response")
	ErrJobFailed         = errors.New("transcription job failed")
)

// Controller misuse and limit errors.
var (
	// ErrSessionActive is returned by Start while a submission or poll loop is running.
	ErrSessionActive = errors.New("a transcription session is already active")
	// ErrEmptyJobID is returned by Watch for a blank job id.
	ErrEmptyJobID = errors.New("job id is empty")
	// ErrEmptyPayload is returned when a request carries no audio.
	ErrEmptyPayload = errors.New("audio payload is empty")
	// ErrPollLimit fails a session that exhausted its configured attempts.
	ErrPollLimit = errors.New("status check limit reached")
	// ErrNoSession is returned for a session that was reset or replaced
	// before it reached a terminal state.
	ErrNoSession = errors.New("no active transcription session")
)

// genericReason is used when the service gives no human-readable message.
const genericReason = "unknown error"

// Error codes used by the CLI suggestion system.
const (
	errorCodeTransport      = "TRANSPORT"
	errorCodeRejected       = "REJECTED"
	errorCodeMalformed      = "MALFORMED_RESPONSE"
	errorCodeJobFailed      = "JOB_FAILED"
	errorCodeSessionActive  = "SESSION_ACTIVE"
	errorCodeInvalidInput   = "INVALID_INPUT"
	errorCodePollLimit      = "POLL_LIMIT"
	errorCodeGenericFailure = "FAILURE"
)

// Error is a structured failure of a submission or status check.
type Error struct {
	Kind ErrorKind
	// Message is the human-readable reason, taken from the service when it sent one.
	Message string
	// StatusCode is the HTTP status for KindRejected, zero otherwise.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status=%d %s: %v", e.Kind, e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status=%d %s", e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrRejected:
		return e.Kind == KindRejected
	case ErrMalformedResponse:
		return e.Kind == KindMalformedResponse
	case ErrJobFailed:
		return e.Kind == KindJobFailed
	}
	return false
}

// Reason returns the message a user should see. Transport reasons keep the
// underlying network error.
func (e *Error) Reason() string {
	if e.Kind == KindTransport && e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return genericReason
}

func transportError(op string, err error) error {
	return &Error{Kind: KindTransport, Message: op, Err: err}
}

func rejectedError(status int, message string) error {
	if message == "" {
		message = genericReason
	}
	return &Error{Kind: KindRejected, StatusCode: status, Message: message}
}

func malformedError(format string, args ...any) error {
	return &Error{Kind: KindMalformedResponse, Message: fmt.Sprintf(format, args...)}
}

func jobFailedError(reason string) error {
	if reason == "" {
		reason = genericReason
	}
	return &Error{Kind: KindJobFailed, Message: reason}
}

// Reason extracts a non-empty human-readable reason from err.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Reason()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericReason
}

// ErrorCode resolves an error into a CLI error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTransport):
		return errorCodeTransport
	case errors.Is(err, ErrRejected):
		return errorCodeRejected
	case errors.Is(err, ErrMalformedResponse):
		return errorCodeMalformed
	case errors.Is(err, ErrJobFailed):
		return errorCodeJobFailed
	case errors.Is(err, ErrSessionActive):
		return errorCodeSessionActive
	case errors.Is(err, ErrEmptyJobID), errors.Is(err, ErrEmptyPayload), errors.Is(err, ErrNotAudio),
		errors.Is(err, ErrUnsupportedLanguage):
		return errorCodeInvalidInput
	case errors.Is(err, ErrPollLimit):
		return errorCodePollLimit
	}

	return errorCodeGenericFailure
}

// ExitCode maps errors to CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch ErrorCode(err) {
	case errorCodeInvalidInput:
		return 2
	case errorCodeTransport:
		return 3
	case errorCodeRejected, errorCodeMalformed:
		return 4
	case errorCodeJobFailed, errorCodePollLimit:
		return 5
	default:
		return 1
	}
}

// Suggestions provides CLI hints for errors.
func Suggestions(err error) []string {
	if err == nil {
		return nil
	}

	switch ErrorCode(err) {
	case errorCodeTransport:
		return []string{
			"Check the endpoint:         scribe transcribe <file> --client.endpoint <url>",
			"Raise the request timeout:  scribe transcribe <file> --client.timeout 2m",
		}
	case errorCodeRejected:
		return []string{
			"Verify the file is audio and the language code is one of: ko, en, ja, zh, auto",
		}
	case errorCodeMalformed:
		return []string{
			"The service answered in an unexpected format; retry with --debug to log the response",
		}
	case errorCodeJobFailed:
		return []string{
			"Retry with a different language hint or with auto-detect: --language auto",
		}
	case errorCodePollLimit:
		return []string{
			"Keep watching the job:      scribe status <job-id> --wait",
		}
	case errorCodeInvalidInput:
		return []string{
			"Provide a non-empty audio file: scribe transcribe ./recording.m4a",
			"Accepted formats include mp3, wav, m4a, flac, ogg, opus and webm",
		}
	default:
		return []string{
			"Retry with verbose logs:    scribe transcribe <file> --debug",
		}
	}
}
