package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cadastre-cli/internal/aggregate"
	"github.com/sells-group/cadastre-cli/internal/captcha"
	"github.com/sells-group/cadastre-cli/internal/model"
	"github.com/sells-group/cadastre-cli/internal/pipeline"
	"github.com/sells-group/cadastre-cli/internal/resilience"
	"github.com/sells-group/cadastre-cli/internal/session"
	"github.com/sells-group/cadastre-cli/internal/store"
)

// initStore opens and migrates the local run-history database.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// buildRunner wires the session, recognizer, captcha gate, and pipeline
// runner from config.
func buildRunner(st store.Store) (*pipeline.Runner, error) {
	sess, err := session.New(session.Config{
		Headers:            cfg.HTTP.Headers,
		ProxyURL:           cfg.HTTP.ProxyURL,
		Timeout:            time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		RateLimit:          cfg.HTTP.RateLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "build session")
	}

	rec, err := captcha.NewRecognizer(cfg.Captcha, cfg.Anticaptcha)
	if err != nil {
		return nil, eris.Wrap(err, "build recognizer")
	}

	gate := captcha.NewGate(sess, rec, captcha.GateConfig{
		ChallengeURL: cfg.Registry.BaseURL + "/captcha.png",
		VerifyURL:    cfg.Registry.BaseURL + "/captcha",
		Retry: resilience.RetryConfig{
			MaxAttempts:    cfg.Captcha.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Captcha.InitialBackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Captcha.MaxBackoffSecs) * time.Second,
		},
	})

	return pipeline.NewRunner(cfg, sess, gate, st), nil
}

// processTask runs one named task end to end: record the run, resolve every
// cadastral number, persist the results, and return the finalized table.
func processTask(ctx context.Context, st store.Store, runner *pipeline.Runner, name string, cadNumbers []string) (model.Table, error) {
	run, err := st.CreateRun(ctx, name, cadNumbers)
	if err != nil {
		return model.Table{}, eris.Wrap(err, "create run")
	}

	records, err := runner.ParseTask(ctx, cadNumbers)
	if err != nil {
		if cerr := st.CompleteRun(ctx, run.ID, model.RunStatusFailed, err.Error(), 0); cerr != nil {
			zap.L().Error("complete run failed", zap.String("run_id", run.ID), zap.Error(cerr))
		}
		return model.Table{}, eris.Wrapf(err, "task %s", name)
	}

	if err := st.SaveRecords(ctx, run.ID, records); err != nil {
		return model.Table{}, eris.Wrap(err, "save records")
	}
	if err := st.CompleteRun(ctx, run.ID, model.RunStatusComplete, "", len(records)); err != nil {
		return model.Table{}, eris.Wrap(err, "complete run")
	}

	zap.L().Info("task complete",
		zap.String("task", name),
		zap.String("run_id", run.ID),
		zap.Int("requested", len(cadNumbers)),
		zap.Int("resolved", len(records)),
	)

	return aggregate.Finalize(records), nil
}
