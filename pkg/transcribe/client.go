package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/vulntor/scribe/pkg/logging"
)

// Multipart field names understood by the submission endpoint.
const (
	fieldAudio    = "audio"
	fieldLanguage = "language"
)

// Response body keys.
const (
	keyJobID      = "jobId"
	keyMessage    = "message"
	keyStatus     = "status"
	keyTranscript = "transcript"
	keyError      = "error"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

const (
	defaultTimeout = 60 * time.Second
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Submitter sends a transcription request and returns the job id assigned by
// the service.
type Submitter interface {
	Submit(ctx context.Context, req Request) (string, error)
}

// StatusChecker reads the current status of a job.
type StatusChecker interface {
	CheckStatus(ctx context.Context, jobID string) (StatusResult, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoint is the submission URL. Status is read from Endpoint/<jobId>.
	Endpoint string
	// HTTPClient is optional and defaults to a client with Timeout.
	HTTPClient *http.Client
	// Timeout bounds each HTTP call when HTTPClient is nil. Defaults to 60s.
	Timeout time.Duration
	// UserAgent is sent with every request when set.
	UserAgent string
}

// Client talks to the transcription service over HTTP. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

var (
	_ Submitter     = (*Client)(nil)
	_ StatusChecker = (*Client)(nil)
)

// NewClient returns a Client for cfg.
func NewClient(cfg ClientConfig) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, errors.New("transcription endpoint is not configured")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid transcription endpoint: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		logger:     logging.Component("client"),
	}, nil
}

// Submit uploads req as multipart/form-data and returns the job id. It makes
// exactly one HTTP call and never retries.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	if len(req.Payload) == 0 {
		return "", ErrEmptyPayload
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		fieldAudio, quoteEscaper.Replace(req.filename())))
	header.Set("Content-Type", req.contentType())
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(req.Payload); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}
	if code, ok := req.Language.Code(); ok {
		if err := writer.WriteField(fieldLanguage, code); err != nil {
			return "", fmt.Errorf("build multipart body: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	status, data, err := c.do(httpReq)
	if err != nil {
		return "", transportError("submit audio", err)
	}

	fields, decodeErr := decodeObject(data)
	if !isSuccess(status) {
		return "", rejectedError(status, stringField(fields, keyMessage))
	}
	if decodeErr != nil {
		return "", malformedError("submission response: %v", decodeErr)
	}

	jobID := stringField(fields, keyJobID)
	if jobID == "" {
		return "", malformedError("submission response has no %s", keyJobID)
	}

	c.logger.Debug().
		Str("job_id", jobID).
		Str("language", req.Language.String()).
		Int("bytes", len(req.Payload)).
		Msg("Audio submitted")
	return jobID, nil
}

// CheckStatus reads the status of jobID. A job the service reports as failed
// is a successful call returning a JobFailed result; the error return is
// reserved for transport, rejection and protocol failures.
func (c *Client) CheckStatus(ctx context.Context, jobID string) (StatusResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return StatusResult{}, ErrEmptyJobID
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+url.PathEscape(jobID), nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("build request: %w", err)
	}

	status, data, err := c.do(httpReq)
	if err != nil {
		return StatusResult{}, transportError("check status", err)
	}

	fields, decodeErr := decodeObject(data)
	if !isSuccess(status) {
		return StatusResult{}, rejectedError(status, stringField(fields, keyMessage))
	}
	if decodeErr != nil {
		return StatusResult{}, malformedError("status response: %v", decodeErr)
	}

	result, err := parseStatus(fields)
	if err != nil {
		return StatusResult{}, err
	}

	c.logger.Debug().
		Str("job_id", jobID).
		Str("status", string(result.Status)).
		Msg("Status checked")
	return result, nil
}

func parseStatus(fields map[string]any) (StatusResult, error) {
	raw := stringField(fields, keyStatus)
	switch JobStatus(raw) {
	case JobInProgress:
		return StatusResult{Status: JobInProgress}, nil
	case JobCompleted:
		v, ok := fields[keyTranscript]
		if !ok || v == nil {
			return StatusResult{}, malformedError("completed job has no %s", keyTranscript)
		}
		transcript, err := cast.ToStringE(v)
		if err != nil {
			return StatusResult{}, malformedError("%s: %v", keyTranscript, err)
		}
		return StatusResult{Status: JobCompleted, Transcript: transcript}, nil
	case JobFailed:
		reason := stringField(fields, keyError)
		if reason == "" {
			reason = genericReason
		}
		return StatusResult{Status: JobFailed, Reason: reason}, nil
	default:
		return StatusResult{}, malformedError("unrecognized job status %q", raw)
	}
}

// do executes req and returns the status code and the (bounded) body.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// decodeObject decodes a JSON object body. The returned map is never nil.
func decodeObject(data []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return fields, errors.New("empty body")
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return map[string]any{}, fmt.Errorf("decode json: %w", err)
	}
	if fields == nil {
		return map[string]any{}, errors.New("body is not a json object")
	}
	return fields, nil
}

// stringField returns fields[key] as a trimmed string. Scalars such as numeric
// ids are converted; missing, null or non-scalar values yield "".
func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
