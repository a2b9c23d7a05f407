package transcribe

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vulntor/scribe/pkg/clock"
	"github.com/vulntor/scribe/pkg/logging"
)

// DefaultPollInterval is the pause between the end of one status check and
// the start of the next.
const DefaultPollInterval = 5 * time.Second

// Options tunes a Controller. The zero value polls every DefaultPollInterval
// with no attempt limit and no check retries.
type Options struct {
	// Interval between status checks. Defaults to DefaultPollInterval.
	Interval time.Duration
	// MaxAttempts bounds the number of status checks per job (0 = unlimited).
	MaxAttempts int
	// CheckRetry retries transient failures inside a single check.
	CheckRetry RetryConfig
	// Clock schedules checks. Defaults to the real clock.
	Clock clock.Clock
}

// Controller drives one transcription session at a time: it submits audio,
// polls the job on a fixed cadence and publishes every SessionState change.
//
// At most one poll handle is alive per Controller. Reaching Completed or
// Failed, Reset, and Watch all release the live handle, and releasing is
// idempotent.
type Controller struct {
	submitter   Submitter
	checker     StatusChecker
	clock       clock.Clock
	interval    time.Duration
	maxAttempts int
	retry       RetryConfig
	logger      zerolog.Logger
	stream      *transitionStream

	// emitMu orders transition delivery; it is taken before mu is released.
	emitMu sync.Mutex

	mu           sync.Mutex
	state        SessionState
	current      *session
	job          *Job
	handle       *pollHandle
	submitCancel context.CancelFunc
}

// session is one Start or Watch call's lifetime.
type session struct {
	id    string
	done  chan struct{}
	final SessionState
	ended bool
}

func newSession() *session {
	return &session{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// pollHandle owns the scheduled check of one job.
type pollHandle struct {
	jobID    string
	timer    clock.Timer
	ctx      context.Context
	cancel   context.CancelFunc
	attempts int
	// retries counts consecutive retries of the current check.
	retries  int
	released bool
}

// release stops the pending timer and cancels an in-flight check. Calling it
// more than once is a no-op.
func (h *pollHandle) release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.cancel()
}

// NewController returns an idle Controller.
func NewController(submitter Submitter, checker StatusChecker, opts Options) (*Controller, error) {
	if submitter == nil {
		return nil, fmt.Errorf("submitter is not configured")
	}
	if checker == nil {
		return nil, fmt.Errorf("status checker is not configured")
	}
	if opts.Interval < 0 {
		return nil, fmt.Errorf("poll interval must be >= 0, got %v", opts.Interval)
	}
	if opts.MaxAttempts < 0 {
		return nil, fmt.Errorf("max attempts must be >= 0, got %d", opts.MaxAttempts)
	}
	if err := opts.CheckRetry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid check retry config: %w", err)
	}

	interval := opts.Interval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	// No session yet: Done and Wait return immediately.
	initial := &session{done: make(chan struct{}), final: idleState(), ended: true}
	close(initial.done)

	return &Controller{
		submitter:   submitter,
		checker:     checker,
		clock:       clk,
		interval:    interval,
		maxAttempts: opts.MaxAttempts,
		retry:       opts.CheckRetry,
		logger:      logging.Component("controller"),
		stream:      newTransitionStream(),
		state:       idleState(),
		current:     initial,
	}, nil
}

// Subscribe registers sub for all future transitions.
func (c *Controller) Subscribe(sub TransitionSubscriber) {
	c.stream.subscribe(sub)
	c.logger.Debug().Str("subscriber", sub.Name()).Msg("Transition subscriber added")
}

// State returns the current SessionState.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Job returns the job of the current session, if one was assigned.
func (c *Controller) Job() (Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return Job{}, false
	}
	return *c.job, true
}

// Done returns a channel closed when the current session ends, either in a
// terminal state or because it was reset or replaced.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.done
}

// Wait blocks until the current session ends and returns its final state.
// The error is nil for Completed, the failure cause for Failed, and
// ErrNoSession when the session was reset or replaced (or none was started).
func (c *Controller) Wait(ctx context.Context) (SessionState, error) {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()

	select {
	case <-sess.done:
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}

	c.mu.Lock()
	final := sess.final
	c.mu.Unlock()

	switch final.Phase {
	case PhaseCompleted:
		return final, nil
	case PhaseFailed:
		return final, final.Err
	default:
		return final, ErrNoSession
	}
}

// Start submits req and, on success, starts polling the returned job. It
// blocks for the submission only. Start is rejected with ErrSessionActive
// while a submission or poll loop is running; a finished session is reset
// implicitly.
func (c *Controller) Start(ctx context.Context, req Request) (string, error) {
	if len(req.Payload) == 0 {
		return "", ErrEmptyPayload
	}

	c.mu.Lock()
	if c.state.Phase == PhaseSubmitting || c.state.Phase == PhasePolling {
		c.mu.Unlock()
		return "", ErrSessionActive
	}
	c.releaseLocked()
	sess := c.beginSessionLocked()
	submitCtx, cancel := context.WithCancel(ctx)
	c.submitCancel = cancel
	tr := c.setStateLocked(submittingState())
	logger := c.logger.With().Str("session_id", sess.id).Logger()
	c.unlockAndEmit(tr)

	logger.Info().
		Str("language", req.Language.String()).
		Int("bytes", len(req.Payload)).
		Msg("Submitting audio")

	jobID, err := c.submitter.Submit(submitCtx, req)
	cancel()

	c.mu.Lock()
	if c.current != sess || sess.ended {
		c.mu.Unlock()
		logger.Warn().Str("job_id", jobID).Msg("Session reset during submission")
		return "", fmt.Errorf("submission abandoned: %w", ErrNoSession)
	}
	c.submitCancel = nil

	if err != nil {
		tr := c.finishLocked(failedState("", err))
		c.unlockAndEmit(tr)
		logger.Error().Err(err).Msg("Submission failed")
		return "", err
	}

	tr = c.startPollingLocked(jobID)
	c.unlockAndEmit(tr)
	logger.Info().Str("job_id", jobID).Dur("interval", c.interval).Msg("Job accepted, polling")
	return jobID, nil
}

// Watch polls an existing job. Any live poll handle is released first, so a
// second Watch replaces the first loop. The first check runs one interval
// after entering Polling.
func (c *Controller) Watch(jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ErrEmptyJobID
	}

	c.mu.Lock()
	if c.state.Phase == PhaseSubmitting {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.releaseLocked()
	c.endSessionLocked(idleState())
	sess := c.beginSessionLocked()
	tr := c.startPollingLocked(jobID)
	c.unlockAndEmit(tr)

	c.logger.Info().
		Str("session_id", sess.id).
		Str("job_id", jobID).
		Dur("interval", c.interval).
		Msg("Watching job")
	return nil
}

// Reset returns the controller to Idle, dropping the job and releasing any
// timer. An in-flight submission or check is canceled and its result
// discarded. Reset is safe to call from any state and any number of times.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.releaseLocked()
	if c.submitCancel != nil {
		c.submitCancel()
		c.submitCancel = nil
	}
	c.job = nil
	c.endSessionLocked(idleState())
	if c.state.Phase == PhaseIdle {
		c.mu.Unlock()
		return
	}
	tr := c.setStateLocked(idleState())
	c.unlockAndEmit(tr)
	c.logger.Debug().Msg("Controller reset")
}

func (c *Controller) beginSessionLocked() *session {
	c.current = newSession()
	c.job = nil
	return c.current
}

// endSessionLocked closes the current session with final unless it already ended.
func (c *Controller) endSessionLocked(final SessionState) {
	if c.current.ended {
		return
	}
	c.current.ended = true
	c.current.final = final
	close(c.current.done)
}

func (c *Controller) startPollingLocked(jobID string) Transition {
	c.releaseLocked()
	c.job = &Job{ID: jobID, Status: JobPending}

	ctx, cancel := context.WithCancel(context.Background())
	h := &pollHandle{jobID: jobID, ctx: ctx, cancel: cancel}
	c.handle = h
	h.timer = c.clock.AfterFunc(c.interval, func() { c.tick(h, false) })

	return c.setStateLocked(pollingState(jobID))
}

// releaseLocked drops the live poll handle, if any.
func (c *Controller) releaseLocked() {
	if c.handle == nil {
		return
	}
	c.handle.release()
	c.handle = nil
}

// tick runs one status check for h and applies its outcome. A retry repeats
// the current check and does not count as a new attempt. A result that
// arrives after h was released is discarded.
func (c *Controller) tick(h *pollHandle, retry bool) {
	c.mu.Lock()
	if c.handle != h || h.released {
		c.mu.Unlock()
		return
	}
	h.timer = nil
	if !retry {
		h.attempts++
	}
	attempt := h.attempts
	logger := c.logger.With().
		Str("session_id", c.current.id).
		Str("job_id", h.jobID).
		Int("attempt", attempt).
		Logger()
	c.mu.Unlock()

	result, err := c.checker.CheckStatus(h.ctx, h.jobID)

	c.mu.Lock()
	if c.handle != h || h.released {
		c.mu.Unlock()
		logger.Debug().Msg("Discarding status of released poll handle")
		return
	}

	if err != nil {
		if wait, ok := c.retry.backoff(h.retries+1, err); ok {
			h.retries++
			h.timer = c.clock.AfterFunc(wait, func() { c.tick(h, true) })
			c.mu.Unlock()
			logger.Warn().Err(err).Dur("retry_in", wait).Msg("Status check failed, retrying")
			return
		}
	}
	h.retries = 0

	var tr Transition
	switch {
	case err != nil:
		c.job.Status = JobFailed
		c.releaseLocked()
		tr = c.finishLocked(failedState(h.jobID, err))
		logger.Error().Err(err).Msg("Status check failed")
	case result.Status == JobCompleted:
		c.job.Status = JobCompleted
		c.releaseLocked()
		tr = c.finishLocked(completedState(h.jobID, result.Transcript))
		logger.Info().Int("transcript_chars", len([]rune(result.Transcript))).Msg("Transcription completed")
	case result.Status == JobFailed:
		c.job.Status = JobFailed
		c.releaseLocked()
		tr = c.finishLocked(failedState(h.jobID, result.Err()))
		logger.Warn().Str("reason", result.Reason).Msg("Transcription job failed")
	default:
		c.job.Status = JobInProgress
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			c.releaseLocked()
			limitErr := fmt.Errorf("%w: job still in progress after %d checks", ErrPollLimit, attempt)
			tr = c.finishLocked(failedState(h.jobID, limitErr))
			logger.Warn().Msg("Giving up on job")
			break
		}
		h.timer = c.clock.AfterFunc(c.interval, func() { c.tick(h, false) })
		c.mu.Unlock()
		logger.Debug().Msg("Job in progress")
		return
	}
	c.unlockAndEmit(tr)
}

// finishLocked moves to a terminal state and ends the session.
func (c *Controller) finishLocked(to SessionState) Transition {
	tr := c.setStateLocked(to)
	c.endSessionLocked(to)
	return tr
}

func (c *Controller) setStateLocked(to SessionState) Transition {
	tr := Transition{
		SessionID: c.current.id,
		From:      c.state,
		To:        to,
		At:        c.clock.Now(),
	}
	c.state = to
	return tr
}

// unlockAndEmit releases mu and delivers tr. emitMu is acquired first so
// transitions reach subscribers in the order they were applied.
func (c *Controller) unlockAndEmit(tr Transition) {
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()

	c.logger.Debug().
		Str("session_id", tr.SessionID).
		Str("from", tr.From.String()).
		Str("to", tr.To.String()).
		Msg("State transition")
	c.stream.emit(tr)
}
