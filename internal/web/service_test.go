package web

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/mergefront/mergefront/internal/hookauth"
	"github.com/mergefront/mergefront/internal/queuestate"
	"github.com/mergefront/mergefront/internal/refresher"
	"github.com/mergefront/mergefront/internal/webhook"
)

const testSecret = "hunter2"

func sign(t *testing.T, body []byte) string {
	t.Helper()

	mac := hmac.New(sha1.New, []byte(testSecret))
	_, err := mac.Write(body)
	require.NoError(t, err)

	return fmt.Sprintf("sha1=%s", hex.EncodeToString(mac.Sum(nil)))
}

type recordingQueue struct {
	jobs []recordedJob
}

type recordedJob struct {
	eventType string
	payload   []byte
}

func (q *recordingQueue) Enqueue(_ context.Context, eventType string, payload []byte) error {
	q.jobs = append(q.jobs, recordedJob{eventType: eventType, payload: payload})
	return nil
}

type fakeQueueReader struct {
	payload []byte
	err     error
}

func (f *fakeQueueReader) Raw(context.Context, queuestate.Key) ([]byte, error) {
	return f.payload, f.err
}

type fakeStatusProvider struct {
	snapshots []*queuestate.Snapshot
	err       error
}

func (f *fakeStatusProvider) GlobalStatus(context.Context) ([]*queuestate.Snapshot, error) {
	return f.snapshots, f.err
}

type fakeRefresher struct {
	branchErr error
	counters  refresher.Counters

	branchCalls []string
	allCalls    int
}

func (f *fakeRefresher) Branch(_ context.Context, owner, repo, branch string) error {
	f.branchCalls = append(f.branchCalls, fmt.Sprintf("%s/%s@%s", owner, repo, branch))
	return f.branchErr
}

func (f *fakeRefresher) All(context.Context) (*refresher.Counters, error) {
	f.allCalls++
	return &f.counters, nil
}

type fakeSubscriber struct {
	updates   chan struct{}
	cancelled atomic.Bool
	err       error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{updates: make(chan struct{}, 1)}
}

func (f *fakeSubscriber) Subscribe(context.Context) (<-chan struct{}, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}

	return f.updates, func() { f.cancelled.Store(true) }, nil
}

type testEnv struct {
	srv       *httptest.Server
	queue     *recordingQueue
	reader    *fakeQueueReader
	status    *fakeStatusProvider
	refresher *fakeRefresher
	updates   *fakeSubscriber
}

func newTestEnv(t *testing.T, opts ...option) *testEnv {
	t.Helper()
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	env := testEnv{
		queue:     &recordingQueue{},
		reader:    &fakeQueueReader{},
		status:    &fakeStatusProvider{snapshots: []*queuestate.Snapshot{}},
		refresher: &fakeRefresher{},
		updates:   newFakeSubscriber(),
	}

	service := New(
		hookauth.New(testSecret),
		webhook.NewClassifier(env.queue),
		env.refresher,
		env.reader,
		env.status,
		env.updates,
		opts...,
	)

	mux := http.NewServeMux()
	service.RegisterHandlers(mux)

	env.srv = httptest.NewServer(mux)
	t.Cleanup(env.srv.Close)

	return &env
}

func postEvent(t *testing.T, env *testEnv, eventType, body, signature string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/event", strings.NewReader(body))
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("X-GitHub-Delivery", "delivery-id-1")
	if signature != "" {
		req.Header.Set(hookauth.HeaderName, signature)
	}

	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

const testEventBody = `{
	"repository": {"name": "widgets", "full_name": "acme/widgets", "owner": {"login": "acme"}},
	"installation": {"id": 4242}
}`

func TestEventWithValidSignatureIsQueued(t *testing.T) {
	env := newTestEnv(t)

	resp := postEvent(t, env, "status", testEventBody, sign(t, []byte(testEventBody)))

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, env.queue.jobs, 1)
	assert.Equal(t, "status", env.queue.jobs[0].eventType)
}

func TestNonQueueableEventIsAcknowledgedWithoutJob(t *testing.T) {
	env := newTestEnv(t)

	resp := postEvent(t, env, "issue_comment", testEventBody, sign(t, []byte(testEventBody)))

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Empty(t, env.queue.jobs)
}

func TestEventWithInvalidSignatureIsRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := postEvent(t, env, "status", testEventBody, "sha1=deadbeef")

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body, "rejection response must not leak verification details")

	assert.Empty(t, env.queue.jobs)
}

func TestEventWithoutSignatureIsRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := postEvent(t, env, "status", testEventBody, "")

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, env.queue.jobs)
}

func TestEventWithInvalidJSONBodyIsRejected(t *testing.T) {
	env := newTestEnv(t)

	body := `{not json`
	resp := postEvent(t, env, "status", body, sign(t, []byte(body)))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.queue.jobs)
}

func TestQueueForUnknownBranchReturnsEmptyArray(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.srv.Client().Get(env.srv.URL + "/queue/acme/widgets/never-written")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestQueueReturnsStoredSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.reader.payload = []byte(`[{"number": 7, "updated_at": "2017-06-12T09:00:00Z"}]`)

	resp, err := env.srv.Client().Get(env.srv.URL + "/queue/acme/widgets/release/v2")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, string(env.reader.payload), string(body))
}

func TestStatusReturnsAggregatedSnapshots(t *testing.T) {
	env := newTestEnv(t)

	key, err := queuestate.NewKey("acme", "widgets", "main")
	require.NoError(t, err)

	entries, err := queuestate.DecodeEntries([]byte(`[{"number": 1, "updated_at": "2017-06-12T09:00:00Z"}]`))
	require.NoError(t, err)

	env.status.snapshots = []*queuestate.Snapshot{queuestate.NewSnapshot(key, entries)}

	resp, err := env.srv.Client().Get(env.srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(
		t,
		`[{"owner": "acme", "repo": "widgets", "branch": "main",
		   "pulls": [{"number": 1, "updated_at": "2017-06-12T09:00:00Z"}],
		   "updated_at": "2017-06-12T09:00:00Z"}]`,
		string(body),
	)
}

func TestStatusWithoutTrackedQueuesReturnsEmptyArray(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.srv.Client().Get(env.srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestRefreshBranch(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.srv.Client().Post(env.srv.URL+"/refresh/acme/widgets/release/v2", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"acme/widgets@release/v2"}, env.refresher.branchCalls)
}

func TestRefreshBranchForUnknownOwner(t *testing.T) {
	env := newTestEnv(t)
	env.refresher.branchErr = &refresher.NotInstalledError{Owner: "stranger"}

	resp, err := env.srv.Client().Post(env.srv.URL+"/refresh/stranger/widgets/main", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "stranger")
}

func TestRefreshAllRequiresSignature(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.srv.Client().Post(env.srv.URL+"/refresh", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, env.refresher.allCalls)
}

func TestRefreshAllReturnsSummary(t *testing.T) {
	env := newTestEnv(t)
	env.refresher.counters = refresher.Counters{Installations: 2, Repositories: 5, Branches: 9}

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/refresh", nil)
	require.NoError(t, err)
	req.Header.Set(hookauth.HeaderName, sign(t, nil))

	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, env.refresher.allCalls)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Updated 2 installations, 5 repositories, 9 branches", string(body))
}

func TestAuthProbe(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.srv.Client().Get(env.srv.URL + "/auth")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestServiceDefaultHeartbeatInterval(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	service := New(hookauth.New(testSecret), nil, nil, nil, nil, nil)
	assert.Equal(t, 50*time.Second, service.heartbeatInterval)
}
