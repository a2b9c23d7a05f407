package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/scribe/pkg/clock"
)

// fakeService is an httptest-backed transcription endpoint with scripted
// status answers.
type fakeService struct {
	t *testing.T

	submitStatus int
	submitBody   string

	mu         sync.Mutex
	statuses   []string
	checks     int32
	checkedIDs []string
	form       map[string]string
}

func newFakeService(t *testing.T, submitStatus int, submitBody string, statuses ...string) (*fakeService, *httptest.Server) {
	fs := &fakeService{
		t:            t,
		submitStatus: submitStatus,
		submitBody:   submitBody,
		statuses:     statuses,
		form:         map[string]string{},
	}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeService) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodPost:
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			fs.mu.Lock()
			for k, v := range r.MultipartForm.Value {
				fs.form[k] = v[0]
			}
			if files := r.MultipartForm.File[fieldAudio]; len(files) > 0 {
				f, _ := files[0].Open()
				data, _ := io.ReadAll(f)
				_ = f.Close()
				fs.form[fieldAudio] = string(data)
			}
			fs.mu.Unlock()
		}
		w.WriteHeader(fs.submitStatus)
		_, _ = w.Write([]byte(fs.submitBody))
	case http.MethodGet:
		atomic.AddInt32(&fs.checks, 1)
		fs.mu.Lock()
		fs.checkedIDs = append(fs.checkedIDs, r.URL.Path)
		body := `{"status":"in-progress"}`
		if len(fs.statuses) > 0 {
			body = fs.statuses[0]
			fs.statuses = fs.statuses[1:]
		}
		fs.mu.Unlock()
		_, _ = w.Write([]byte(body))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (fs *fakeService) checkCount() int {
	return int(atomic.LoadInt32(&fs.checks))
}

func (fs *fakeService) field(name string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.form[name]
	return v, ok
}

type transitionRecorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *transitionRecorder) Handle(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *transitionRecorder) Name() string { return "recorder" }

func (r *transitionRecorder) phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, 0, len(r.transitions))
	for _, t := range r.transitions {
		out = append(out, t.To.Phase)
	}
	return out
}

func newTestController(t *testing.T, srv *httptest.Server, opts Options) (*Controller, *clock.ManagedClock) {
	t.Helper()
	client, err := NewClient(ClientConfig{Endpoint: srv.URL + "/Prod/transcribe", HTTPClient: srv.Client()})
	require.NoError(t, err)

	clk := clock.NewManaged(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	opts.Clock = clk
	ctrl, err := NewController(client, client, opts)
	require.NoError(t, err)
	return ctrl, clk
}

func hasLiveHandle(c *Controller) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

func audioRequest(lang Language) Request {
	return Request{Payload: []byte("audio-bytes"), Language: lang}
}

func TestController_CompletesAfterInProgress(t *testing.T) {
	fs, srv := newFakeService(t, http.StatusOK, `{"jobId":"job-1"}`,
		`{"status":"in-progress"}`,
		`{"status":"completed","transcript":"안녕하세요"}`,
	)
	ctrl, clk := newTestController(t, srv, Options{})
	rec := &transitionRecorder{}
	ctrl.Subscribe(rec)

	jobID, err := ctrl.Start(context.Background(), audioRequest(LanguageCode("ko")))
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, pollingState("job-1"), ctrl.State())
	assert.True(t, hasLiveHandle(ctrl))
	assert.Equal(t, 1, clk.PendingTimers())

	audio, ok := fs.field(fieldAudio)
	require.True(t, ok)
	assert.Equal(t, "audio-bytes", audio)
	lang, ok := fs.field(fieldLanguage)
	require.True(t, ok)
	assert.Equal(t, "ko", lang)

	// No immediate check on entering Polling.
	assert.Equal(t, 0, fs.checkCount())

	clk.WarpForward(5 * time.Second)
	assert.Equal(t, 1, fs.checkCount())
	fs.mu.Lock()
	assert.Equal(t, []string{"/Prod/transcribe/job-1"}, fs.checkedIDs)
	fs.mu.Unlock()
	assert.Equal(t, PhasePolling, ctrl.State().Phase)
	job, ok := ctrl.Job()
	require.True(t, ok)
	assert.Equal(t, JobInProgress, job.Status)

	clk.WarpForward(5 * time.Second)
	assert.Equal(t, 2, fs.checkCount())
	state := ctrl.State()
	assert.Equal(t, PhaseCompleted, state.Phase)
	assert.Equal(t, "안녕하세요", state.Transcript)
	assert.Equal(t, 0, clk.PendingTimers())
	assert.False(t, hasLiveHandle(ctrl))

	clk.WarpForward(time.Minute)
	assert.Equal(t, 2, fs.checkCount(), "no checks after termination")

	assert.Equal(t, []Phase{PhaseSubmitting, PhasePolling, PhaseCompleted}, rec.phases())

	final, err := ctrl.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", final.Transcript)
}

func TestController_JobFailedReason(t *testing.T) {
	fs, srv := newFakeService(t, http.StatusOK, `{"jobId":"job-2"}`,
		`{"status":"failed","error":"decode error"}`,
	)
	ctrl, clk := newTestController(t, srv, Options{})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)

	_, sent := fs.field(fieldLanguage)
	assert.False(t, sent, "auto-detect omits the language field")

	clk.WarpForward(5 * time.Second)

	state := ctrl.State()
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, "decode error", state.Reason)
	assert.ErrorIs(t, state.Err, ErrJobFailed)
	assert.Equal(t, 0, clk.PendingTimers())

	_, err = ctrl.Wait(context.Background())
	assert.ErrorIs(t, err, ErrJobFailed)
}

func TestController_FailedWithoutReasonUsesGeneric(t *testing.T) {
	_, srv := newFakeService(t, http.StatusOK, `{"jobId":"job-3"}`, `{"status":"failed"}`)
	ctrl, clk := newTestController(t, srv, Options{})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)
	clk.WarpForward(5 * time.Second)

	assert.Equal(t, PhaseFailed, ctrl.State().Phase)
	assert.Equal(t, genericReason, ctrl.State().Reason)
}

func TestController_MissingJobIDNeverPolls(t *testing.T) {
	fs, srv := newFakeService(t, http.StatusOK, `{}`)
	ctrl, clk := newTestController(t, srv, Options{})
	rec := &transitionRecorder{}
	ctrl.Subscribe(rec)

	_, err := ctrl.Start(context.Background(), audioRequest(LanguageCode("en")))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	state := ctrl.State()
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.NotEmpty(t, state.Reason)
	assert.Equal(t, 0, clk.PendingTimers())
	assert.False(t, hasLiveHandle(ctrl))

	clk.WarpForward(time.Minute)
	assert.Equal(t, 0, fs.checkCount())
	assert.Equal(t, []Phase{PhaseSubmitting, PhaseFailed}, rec.phases())
}

func TestController_RejectedSubmissionNeverPolls(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReason string
	}{
		{name: "server message", body: `{"message":"file too large"}`, wantReason: "file too large"},
		{name: "no message", body: `{}`, wantReason: genericReason},
		{name: "not json", body: `<html>bad gateway</html>`, wantReason: genericReason},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, srv := newFakeService(t, http.StatusBadRequest, tt.body)
			ctrl, clk := newTestController(t, srv, Options{})

			_, err := ctrl.Start(context.Background(), audioRequest(LanguageCode("ja")))
			require.ErrorIs(t, err, ErrRejected)

			state := ctrl.State()
			assert.Equal(t, PhaseFailed, state.Phase)
			assert.Equal(t, tt.wantReason, state.Reason)
			assert.Empty(t, state.JobID)
			assert.Equal(t, 0, clk.PendingTimers())

			clk.WarpForward(time.Minute)
			assert.Equal(t, 0, fs.checkCount())
		})
	}
}

func TestController_UnknownStatusFails(t *testing.T) {
	_, srv := newFakeService(t, http.StatusOK, `{"jobId":"job-4"}`, `{"status":"queued"}`)
	ctrl, clk := newTestController(t, srv, Options{})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)
	clk.WarpForward(5 * time.Second)

	state := ctrl.State()
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.ErrorIs(t, state.Err, ErrMalformedResponse)
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestController_CompletedWithoutTranscriptFails(t *testing.T) {
	_, srv := newFakeService(t, http.StatusOK, `{"jobId":"job-5"}`, `{"status":"completed"}`)
	ctrl, clk := newTestController(t, srv, Options{})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)
	clk.WarpForward(5 * time.Second)

	assert.Equal(t, PhaseFailed, ctrl.State().Phase)
	assert.ErrorIs(t, ctrl.State().Err, ErrMalformedResponse)
}

// stubSubmitter and stubChecker drive the controller without HTTP.
type stubSubmitter struct {
	jobID string
	err   error
}

func (s *stubSubmitter) Submit(_ context.Context, _ Request) (string, error) {
	return s.jobID, s.err
}

type stubChecker struct {
	mu      sync.Mutex
	results []stubResult
	calls   []string
	onCheck func()
}

type stubResult struct {
	result StatusResult
	err    error
}

func (s *stubChecker) CheckStatus(_ context.Context, jobID string) (StatusResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, jobID)
	next := stubResult{result: StatusResult{Status: JobInProgress}}
	if len(s.results) > 0 {
		next = s.results[0]
		s.results = s.results[1:]
	}
	onCheck := s.onCheck
	s.mu.Unlock()

	if onCheck != nil {
		onCheck()
	}
	return next.result, next.err
}

func (s *stubChecker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newStubController(t *testing.T, sub Submitter, checker StatusChecker, opts Options) (*Controller, *clock.ManagedClock) {
	t.Helper()
	clk := clock.NewManaged(time.Unix(0, 0))
	opts.Clock = clk
	ctrl, err := NewController(sub, checker, opts)
	require.NoError(t, err)
	return ctrl, clk
}

func TestController_TransportErrorMidPoll(t *testing.T) {
	checker := &stubChecker{results: []stubResult{
		{result: StatusResult{Status: JobInProgress}},
		{err: transportError("check status", errors.New("connection reset by peer"))},
	}}
	ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-6"}, checker, Options{})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)

	clk.WarpForward(10 * time.Second)

	state := ctrl.State()
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Equal(t, "check status: connection reset by peer", state.Reason)
	assert.ErrorIs(t, state.Err, ErrTransport)
	assert.Equal(t, 0, clk.PendingTimers())

	clk.WarpForward(time.Minute)
	assert.Equal(t, 2, checker.callCount())
}

func TestController_ResetIsIdempotentFromEveryState(t *testing.T) {
	setups := map[string]func(t *testing.T, ctrl *Controller, clk *clock.ManagedClock){
		"idle": func(*testing.T, *Controller, *clock.ManagedClock) {},
		"polling": func(t *testing.T, ctrl *Controller, _ *clock.ManagedClock) {
			_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
			require.NoError(t, err)
		},
		"completed": func(t *testing.T, ctrl *Controller, clk *clock.ManagedClock) {
			_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
			require.NoError(t, err)
			clk.WarpForward(5 * time.Second)
			require.Equal(t, PhaseCompleted, ctrl.State().Phase)
		},
		"failed": func(t *testing.T, ctrl *Controller, clk *clock.ManagedClock) {
			_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
			require.NoError(t, err)
			clk.WarpForward(10 * time.Second)
			require.Equal(t, PhaseFailed, ctrl.State().Phase)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			results := []stubResult{{result: StatusResult{Status: JobCompleted, Transcript: "ok"}}}
			if name == "failed" {
				results = []stubResult{
					{result: StatusResult{Status: JobInProgress}},
					{result: StatusResult{Status: JobFailed, Reason: "boom"}},
				}
			}
			checker := &stubChecker{results: results}
			ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-r"}, checker, Options{})
			setup(t, ctrl, clk)

			ctrl.Reset()
			ctrl.Reset()

			assert.Equal(t, idleState(), ctrl.State())
			assert.False(t, hasLiveHandle(ctrl))
			assert.Equal(t, 0, clk.PendingTimers())
			_, ok := ctrl.Job()
			assert.False(t, ok)

			calls := checker.callCount()
			clk.WarpForward(time.Minute)
			assert.Equal(t, calls, checker.callCount())
		})
	}
}

func TestController_StartRejectedWhileActive(t *testing.T) {
	ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-7"}, &stubChecker{}, Options{})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)

	_, err = ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, pollingState("job-7"), ctrl.State())
	assert.Equal(t, 1, clk.PendingTimers())
}

func TestController_StartAfterTerminalResetsImplicitly(t *testing.T) {
	sub := &stubSubmitter{jobID: "job-8"}
	checker := &stubChecker{results: []stubResult{
		{result: StatusResult{Status: JobCompleted, Transcript: "first"}},
	}}
	ctrl, clk := newStubController(t, sub, checker, Options{})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)
	clk.WarpForward(5 * time.Second)
	require.Equal(t, PhaseCompleted, ctrl.State().Phase)

	sub.jobID = "job-9"
	jobID, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)
	assert.Equal(t, "job-9", jobID)
	assert.Equal(t, pollingState("job-9"), ctrl.State())
	assert.Equal(t, 1, clk.PendingTimers())
}

func TestController_StartRejectsEmptyPayload(t *testing.T) {
	ctrl, _ := newStubController(t, &stubSubmitter{jobID: "x"}, &stubChecker{}, Options{})

	_, err := ctrl.Start(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.Equal(t, PhaseIdle, ctrl.State().Phase)
}

func TestController_WatchReplacesLiveHandle(t *testing.T) {
	checker := &stubChecker{}
	ctrl, clk := newStubController(t, &stubSubmitter{}, checker, Options{})

	require.NoError(t, ctrl.Watch("job-a"))
	firstDone := ctrl.Done()
	require.NoError(t, ctrl.Watch("job-b"))

	assert.Equal(t, 1, clk.PendingTimers(), "only one poll handle may be alive")
	assert.Equal(t, pollingState("job-b"), ctrl.State())

	select {
	case <-firstDone:
	default:
		t.Fatal("replaced session must be ended")
	}

	clk.WarpForward(15 * time.Second)
	checker.mu.Lock()
	calls := append([]string(nil), checker.calls...)
	checker.mu.Unlock()
	assert.Equal(t, []string{"job-b", "job-b", "job-b"}, calls)
}

func TestController_WatchRejectsEmptyJobID(t *testing.T) {
	ctrl, clk := newStubController(t, &stubSubmitter{}, &stubChecker{}, Options{})

	assert.ErrorIs(t, ctrl.Watch("  "), ErrEmptyJobID)
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestController_ResultAfterResetIsDiscarded(t *testing.T) {
	checker := &stubChecker{results: []stubResult{
		{result: StatusResult{Status: JobCompleted, Transcript: "late"}},
	}}
	ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-10"}, checker, Options{})
	checker.onCheck = ctrl.Reset

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)

	clk.WarpForward(5 * time.Second)

	assert.Equal(t, idleState(), ctrl.State())
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestController_PeriodIsBetweenCompletions(t *testing.T) {
	checker := &stubChecker{}
	ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-11"}, checker, Options{Interval: 5 * time.Second})

	var checkTimes []time.Time
	checker.onCheck = func() {
		checkTimes = append(checkTimes, clk.Now())
		// Each check takes 2s; the next one is scheduled from its end.
		clk.WarpForward(2 * time.Second)
	}

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)

	clk.WarpForward(20 * time.Second)
	require.Len(t, checkTimes, 3)
	assert.Equal(t, 7*time.Second, checkTimes[1].Sub(checkTimes[0]))
	assert.Equal(t, 7*time.Second, checkTimes[2].Sub(checkTimes[1]))
}

func TestController_MaxAttempts(t *testing.T) {
	checker := &stubChecker{}
	ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-12"}, checker, Options{MaxAttempts: 3})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)

	clk.WarpForward(time.Minute)

	state := ctrl.State()
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.ErrorIs(t, state.Err, ErrPollLimit)
	assert.Equal(t, 3, checker.callCount())
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestController_CheckRetryAbsorbsTransientFailure(t *testing.T) {
	checker := &stubChecker{results: []stubResult{
		{err: transportError("check status", errors.New("connection refused"))},
		{result: StatusResult{Status: JobCompleted, Transcript: "after retry"}},
	}}
	retry := RetryConfig{MaxAttempts: 1, InitialWait: time.Millisecond, Multiplier: 1}
	ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-13"}, checker, Options{CheckRetry: retry})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)
	clk.WarpForward(5 * time.Second)

	assert.Equal(t, completedState("job-13", "after retry"), ctrl.State())
	assert.Equal(t, 2, checker.callCount())
}

func TestController_CheckRetryWaitsOnControllerClock(t *testing.T) {
	checker := &stubChecker{results: []stubResult{
		{err: rejectedError(http.StatusServiceUnavailable, "busy")},
		{result: StatusResult{Status: JobInProgress}},
		{result: StatusResult{Status: JobCompleted, Transcript: "done"}},
	}}
	retry := RetryConfig{MaxAttempts: 1, InitialWait: 2 * time.Second, Multiplier: 1}
	ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-14"}, checker,
		Options{CheckRetry: retry, MaxAttempts: 2})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)

	clk.WarpForward(5 * time.Second)
	assert.Equal(t, 1, checker.callCount())
	assert.Equal(t, PhasePolling, ctrl.State().Phase, "retry is pending, session still polling")
	assert.Equal(t, 1, clk.PendingTimers())

	clk.WarpForward(2 * time.Second)
	assert.Equal(t, 2, checker.callCount())
	assert.Equal(t, PhasePolling, ctrl.State().Phase)

	// The retry did not use up one of the two allowed checks.
	clk.WarpForward(5 * time.Second)
	assert.Equal(t, 3, checker.callCount())
	assert.Equal(t, completedState("job-14", "done"), ctrl.State())
}

func TestController_ResetCancelsPendingRetry(t *testing.T) {
	checker := &stubChecker{results: []stubResult{
		{err: transportError("check status", errors.New("connection reset"))},
	}}
	retry := RetryConfig{MaxAttempts: 3, InitialWait: time.Second, Multiplier: 1}
	ctrl, clk := newStubController(t, &stubSubmitter{jobID: "job-15"}, checker, Options{CheckRetry: retry})

	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)
	clk.WarpForward(5 * time.Second)
	require.Equal(t, 1, clk.PendingTimers())

	ctrl.Reset()
	assert.Equal(t, 0, clk.PendingTimers())
	clk.WarpForward(time.Minute)
	assert.Equal(t, 1, checker.callCount())
}

// blockingSubmitter blocks until its context is canceled.
type blockingSubmitter struct {
	entered chan struct{}
}

func (b *blockingSubmitter) Submit(ctx context.Context, _ Request) (string, error) {
	close(b.entered)
	<-ctx.Done()
	return "", transportError("submit audio", ctx.Err())
}

func TestController_ResetDuringSubmission(t *testing.T) {
	sub := &blockingSubmitter{entered: make(chan struct{})}
	ctrl, clk := newStubController(t, sub, &stubChecker{}, Options{})

	errCh := make(chan error, 1)
	go func() {
		_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
		errCh <- err
	}()

	<-sub.entered
	assert.Equal(t, PhaseSubmitting, ctrl.State().Phase)
	assert.ErrorIs(t, ctrl.Watch("job-x"), ErrSessionActive)

	ctrl.Reset()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrNoSession)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Reset")
	}
	assert.Equal(t, idleState(), ctrl.State())
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestController_WaitWithoutSession(t *testing.T) {
	ctrl, _ := newStubController(t, &stubSubmitter{}, &stubChecker{}, Options{})

	state, err := ctrl.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, PhaseIdle, state.Phase)
}

func TestController_WaitHonorsContext(t *testing.T) {
	ctrl, _ := newStubController(t, &stubSubmitter{jobID: "job-14"}, &stubChecker{}, Options{})
	_, err := ctrl.Start(context.Background(), audioRequest(AutoDetect()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	state, err := ctrl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, PhasePolling, state.Phase)
}

func TestController_RealClock(t *testing.T) {
	_, srv := newFakeService(t, http.StatusOK, `{"jobId":"job-rt"}`,
		`{"status":"in-progress"}`,
		`{"status":"completed","transcript":"hello"}`,
	)
	client, err := NewClient(ClientConfig{Endpoint: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	ctrl, err := NewController(client, client, Options{Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = ctrl.Start(context.Background(), audioRequest(LanguageCode("en")))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := ctrl.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", state.Transcript)
	assert.False(t, hasLiveHandle(ctrl))
}

func TestNewController_Validation(t *testing.T) {
	checker := &stubChecker{}
	sub := &stubSubmitter{}

	_, err := NewController(nil, checker, Options{})
	assert.Error(t, err)
	_, err = NewController(sub, nil, Options{})
	assert.Error(t, err)
	_, err = NewController(sub, checker, Options{Interval: -time.Second})
	assert.Error(t, err)
	_, err = NewController(sub, checker, Options{MaxAttempts: -1})
	assert.Error(t, err)
	_, err = NewController(sub, checker, Options{CheckRetry: RetryConfig{MaxAttempts: 1, Multiplier: 0.5}})
	assert.Error(t, err)

	ctrl, err := NewController(sub, checker, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, ctrl.interval)
}
