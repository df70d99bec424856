package pipeline

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cadastre-cli/internal/captcha"
	"github.com/sells-group/cadastre-cli/internal/config"
	"github.com/sells-group/cadastre-cli/internal/model"
	"github.com/sells-group/cadastre-cli/internal/refdata"
	"github.com/sells-group/cadastre-cli/internal/resilience"
	"github.com/sells-group/cadastre-cli/internal/session"
)

// memStore is an in-memory store.Store for runner tests.
type memStore struct {
	dicts map[refdata.Key]dictSnapshot
	saved map[refdata.Key]int
}

type dictSnapshot struct {
	pairs     []refdata.Pair
	fetchedAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		dicts: make(map[refdata.Key]dictSnapshot),
		saved: make(map[refdata.Key]int),
	}
}

func (m *memStore) CreateRun(context.Context, string, []string) (*model.Run, error) {
	return &model.Run{ID: "test-run"}, nil
}

func (m *memStore) CompleteRun(context.Context, string, model.RunStatus, string, int) error {
	return nil
}

func (m *memStore) ListRuns(context.Context, int) ([]model.Run, error) { return nil, nil }

func (m *memStore) SaveRecords(context.Context, string, []model.Record) error { return nil }

func (m *memStore) SaveDictionary(_ context.Context, key refdata.Key, pairs []refdata.Pair) error {
	m.dicts[key] = dictSnapshot{pairs: pairs, fetchedAt: time.Now()}
	m.saved[key]++
	return nil
}

func (m *memStore) GetDictionary(_ context.Context, key refdata.Key, maxAge time.Duration) ([]refdata.Pair, bool, error) {
	snap, ok := m.dicts[key]
	if !ok {
		return nil, false, nil
	}
	if maxAge > 0 && time.Since(snap.fetchedAt) > maxAge {
		return nil, false, nil
	}
	return snap.pairs, true, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func testRunnerConfig(srvURL string) *config.Config {
	return &config.Config{
		Registry: config.RegistryConfig{
			BaseURL:            srvURL + "/api",
			PortalURL:          srvURL + "/portal",
			DictionaryTTLHours: 24,
		},
		Pipeline: config.PipelineConfig{MaxRedo: 3},
	}
}

func newTestRunner(t *testing.T, srvURL string, st *memStore, recText string) *Runner {
	t.Helper()
	sess, err := session.New(session.Config{})
	require.NoError(t, err)

	gate := captcha.NewGate(sess, fixedRecognizer{text: recText}, captcha.GateConfig{
		ChallengeURL: srvURL + "/api/captcha.png",
		VerifyURL:    srvURL + "/api/captcha",
		Retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			JitterFraction: 0,
		},
	})

	return NewRunner(testRunnerConfig(srvURL), sess, gate, st)
}

func TestRunnerInitialize_FetchesAndPersistsDictionaries(t *testing.T) {
	reg := newFakeRegistry(t)
	srv := httptest.NewServer(reg.mux)
	defer srv.Close()

	st := newMemStore()
	runner := newTestRunner(t, srv.URL, st, "good")

	require.NoError(t, runner.Initialize(context.Background()))

	for _, key := range refdata.AllKeys {
		assert.True(t, runner.Cache().Populated(key), string(key))
		assert.Equal(t, 1, st.saved[key], string(key))
	}
}

func TestRunnerInitialize_ReusesFreshSnapshots(t *testing.T) {
	reg := newFakeRegistry(t)
	srv := httptest.NewServer(reg.mux)
	defer srv.Close()

	st := newMemStore()
	for _, key := range refdata.AllKeys {
		require.NoError(t, st.SaveDictionary(context.Background(), key, []refdata.Pair{
			{Code: "stored", Label: "из кэша"},
		}))
		st.saved[key] = 0
	}

	runner := newTestRunner(t, srv.URL, st, "good")
	require.NoError(t, runner.Initialize(context.Background()))

	// Nothing re-fetched, nothing re-persisted.
	for _, key := range refdata.AllKeys {
		assert.Zero(t, st.saved[key], string(key))
		label, ok := runner.Cache().Resolve(key, "stored")
		assert.True(t, ok)
		assert.Equal(t, "из кэша", label)
	}
}

func TestRunnerInitialize_Idempotent(t *testing.T) {
	reg := newFakeRegistry(t)
	srv := httptest.NewServer(reg.mux)
	defer srv.Close()

	st := newMemStore()
	runner := newTestRunner(t, srv.URL, st, "good")

	require.NoError(t, runner.Initialize(context.Background()))
	require.NoError(t, runner.Initialize(context.Background()))
	assert.Equal(t, 1, reg.portalHits)
}

func TestRunnerParseTask_RequiresInitialize(t *testing.T) {
	reg := newFakeRegistry(t)
	srv := httptest.NewServer(reg.mux)
	defer srv.Close()

	runner := newTestRunner(t, srv.URL, newMemStore(), "good")
	_, err := runner.ParseTask(context.Background(), []string{"77:01:0001001:1"})
	assert.Error(t, err)
}

func TestRunnerParseTask_ResolvesEntities(t *testing.T) {
	reg := newFakeRegistry(t)
	srv := httptest.NewServer(reg.mux)
	defer srv.Close()

	runner := newTestRunner(t, srv.URL, newMemStore(), "good")
	require.NoError(t, runner.Initialize(context.Background()))

	records, err := runner.ParseTask(context.Background(), []string{
		"77:01:0001001:1",
		"77:00:0000000:404", // resolves to no elements, not an error
		"77:01:0001001:2",
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "77:01:0001001:1", records[0].CadNumber)
	assert.Equal(t, "77:01:0001001:2", records[1].CadNumber)
}

func TestRunnerParseTask_FirstFailureAbortsByDefault(t *testing.T) {
	reg := newFakeRegistry(t)
	srv := httptest.NewServer(reg.mux)
	defer srv.Close()

	runner := newTestRunner(t, srv.URL, newMemStore(), "always-wrong")
	require.NoError(t, runner.Initialize(context.Background()))

	_, err := runner.ParseTask(context.Background(), []string{"77:01:0001001:1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, captcha.ErrAttemptsExhausted)
}

func TestRunnerParseTask_SkipFailedContinues(t *testing.T) {
	reg := newFakeRegistry(t)
	srv := httptest.NewServer(reg.mux)
	defer srv.Close()

	sess, err := session.New(session.Config{})
	require.NoError(t, err)

	// Recognizer fails on the first challenge only; the second entity
	// verifies normally.
	rec := &scriptedGateRecognizer{answers: []string{"always-wrong", "always-wrong", "good"}}
	gate := captcha.NewGate(sess, rec, captcha.GateConfig{
		ChallengeURL: srv.URL + "/api/captcha.png",
		VerifyURL:    srv.URL + "/api/captcha",
		Retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			JitterFraction: 0,
		},
	})

	cfg := testRunnerConfig(srv.URL)
	cfg.Pipeline.SkipFailed = true
	runner := NewRunner(cfg, sess, gate, newMemStore())
	require.NoError(t, runner.Initialize(context.Background()))

	records, err := runner.ParseTask(context.Background(), []string{
		"77:01:0001001:1",
		"77:01:0001001:2",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "77:01:0001001:2", records[0].CadNumber)
}

// scriptedGateRecognizer returns queued answers, then repeats the last one.
type scriptedGateRecognizer struct {
	answers []string
	calls   int
}

func (r *scriptedGateRecognizer) Recognize(context.Context, []byte) (string, error) {
	i := r.calls
	if i >= len(r.answers) {
		i = len(r.answers) - 1
	}
	r.calls++
	return r.answers[i], nil
}
