package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cadastre-cli/internal/captcha"
	"github.com/sells-group/cadastre-cli/internal/config"
	"github.com/sells-group/cadastre-cli/internal/model"
	"github.com/sells-group/cadastre-cli/internal/refdata"
	"github.com/sells-group/cadastre-cli/internal/session"
	"github.com/sells-group/cadastre-cli/internal/store"
)

// Runner ties the executor, captcha gate, reference cache, and store into
// the two phases every command shares: one initialization pass, then one
// parsing pass per task.
type Runner struct {
	cfg   *config.Config
	sess  *session.Session
	gate  *captcha.Gate
	cache *refdata.Cache
	st    store.Store

	initialized bool
}

// NewRunner assembles a runner from already-constructed parts.
func NewRunner(cfg *config.Config, sess *session.Session, gate *captcha.Gate, st store.Store) *Runner {
	return &Runner{
		cfg:   cfg,
		sess:  sess,
		gate:  gate,
		cache: refdata.NewCache(),
		st:    st,
	}
}

// Cache exposes the reference cache for callers that resolve codes outside
// a pipeline run.
func (r *Runner) Cache() *refdata.Cache {
	return r.cache
}

// Initialize seeds session cookies and loads reference dictionaries. Stored
// snapshots within the TTL are reused; only stale or missing keys are
// fetched, and fresh fetches are persisted for the next run. Safe to call
// once per process; subsequent calls are no-ops.
func (r *Runner) Initialize(ctx context.Context) error {
	if r.initialized {
		return nil
	}

	ttl := time.Duration(r.cfg.Registry.DictionaryTTLHours) * time.Hour

	var stale []refdata.Key
	for _, key := range refdata.AllKeys {
		pairs, ok, err := r.st.GetDictionary(ctx, key, ttl)
		if err != nil {
			return eris.Wrapf(err, "pipeline: load dictionary %s", key)
		}
		if ok {
			r.cache.Populate(key, pairs)
			continue
		}
		stale = append(stale, key)
	}
	zap.L().Info("pipeline: initializing",
		zap.Int("cached_dictionaries", len(refdata.AllKeys)-len(stale)),
		zap.Int("stale_dictionaries", len(stale)),
	)

	state := NewState(r.cache)
	exec := NewExecutor(r.sess, state, ExecutorConfig{MaxRedo: r.cfg.Pipeline.MaxRedo})
	steps := InitSequence(r.cfg.Registry.PortalURL, r.cfg.Registry.BaseURL, stale)
	if err := exec.Run(ctx, steps); err != nil {
		return eris.Wrap(err, "pipeline: initialize")
	}

	for _, key := range stale {
		if err := r.st.SaveDictionary(ctx, key, r.cache.Pairs(key)); err != nil {
			return eris.Wrapf(err, "pipeline: persist dictionary %s", key)
		}
	}

	r.initialized = true
	return nil
}

// ParseTask resolves every cadastral number of one task through the
// captcha-gated parsing sequence and returns the normalized records. With
// pipeline.skip_failed set, a failed entity is logged and skipped; otherwise
// the first failure aborts the task.
func (r *Runner) ParseTask(ctx context.Context, cadNumbers []string) ([]model.Record, error) {
	if !r.initialized {
		return nil, eris.New("pipeline: runner not initialized")
	}

	state := NewState(r.cache)
	exec := NewExecutor(r.sess, state, ExecutorConfig{MaxRedo: r.cfg.Pipeline.MaxRedo})
	steps := ParseSequence(r.cfg.Registry.BaseURL, r.gate)

	for _, cad := range cadNumbers {
		state.CadNumber = cad
		state.CaptchaToken = ""

		if err := exec.Run(ctx, steps); err != nil {
			if !r.cfg.Pipeline.SkipFailed {
				return nil, eris.Wrapf(err, "pipeline: parse %s", cad)
			}
			zap.L().Warn("pipeline: entity skipped",
				zap.String("cad_number", cad),
				zap.Error(err),
			)
		}
	}

	return state.DrainResults(), nil
}
