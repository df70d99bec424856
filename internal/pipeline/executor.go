package pipeline

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cadastre-cli/internal/session"
)

// maxLoggedURLLen truncates URLs in logs and errors.
const maxLoggedURLLen = 100

// maxLoggedBodyLen truncates response bodies carried in fatal errors.
const maxLoggedBodyLen = 512

// ExecutorConfig tunes the executor.
type ExecutorConfig struct {
	// Accept is the set of response statuses treated as step success.
	// Defaults to {200, 401}: 401 is an expected unauthenticated probe,
	// not a failure.
	Accept []int

	// MaxRedo bounds how many times one step may signal Redo. Default: 10.
	MaxRedo int
}

// Executor runs an ordered step sequence against the shared session,
// fail-fast. It owns the run's State; hooks mutate state, never the steps.
type Executor struct {
	sess    *session.Session
	state   *State
	accept  map[int]bool
	maxRedo int
}

// NewExecutor creates an executor around a session and per-run state.
func NewExecutor(sess *session.Session, state *State, cfg ExecutorConfig) *Executor {
	if len(cfg.Accept) == 0 {
		cfg.Accept = []int{http.StatusOK, http.StatusUnauthorized}
	}
	if cfg.MaxRedo <= 0 {
		cfg.MaxRedo = 10
	}
	accept := make(map[int]bool, len(cfg.Accept))
	for _, code := range cfg.Accept {
		accept[code] = true
	}
	return &Executor{sess: sess, state: state, accept: accept, maxRedo: cfg.MaxRedo}
}

// State returns the run state owned by this executor.
func (e *Executor) State() *State {
	return e.state
}

// Run executes the steps in order. The first fatal outcome aborts the run:
// no later step executes. Transport errors are fatal at this layer; retry
// policies live with the callers that own them (the captcha gate).
func (e *Executor) Run(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		if err := e.runStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

// runStep executes one step, honoring Redo up to the budget.
func (e *Executor) runStep(ctx context.Context, step Step) error {
	for redo := 0; ; redo++ {
		if redo > e.maxRedo {
			return eris.Errorf("pipeline: step %s exceeded redo budget (%d)", step.Name, e.maxRedo)
		}

		outcome := e.execute(ctx, step)
		switch outcome.kind {
		case outcomeContinue:
			return nil
		case outcomeRedo:
			zap.L().Info("pipeline: redo step",
				zap.String("step", step.Name),
				zap.Int("redo", redo+1),
			)
		case outcomeFatal:
			return outcome.err
		}
	}
}

// execute runs one full pass of a step: pre-hook, send, status policy,
// post-hook.
func (e *Executor) execute(ctx context.Context, step Step) Outcome {
	if step.Do != nil {
		return step.Do(ctx, e.state)
	}

	var payload any
	if step.PreHook != nil {
		payload = step.PreHook(e.state)
	}

	resp, err := e.sess.Send(ctx, step.Method, step.Target, payload, !step.BypassProxy)
	if err != nil {
		return Fatal(eris.Wrapf(err, "pipeline: step %s: send %s", step.Name, truncate(step.Target, maxLoggedURLLen)))
	}

	if !e.accept[resp.StatusCode] {
		return Fatal(eris.Errorf("pipeline: step %s: status %d from %s: %s",
			step.Name,
			resp.StatusCode,
			truncate(step.Target, maxLoggedURLLen),
			truncate(string(resp.Body), maxLoggedBodyLen),
		))
	}

	zap.L().Info("pipeline: request ok",
		zap.String("step", step.Name),
		zap.Int("status", resp.StatusCode),
		zap.String("url", truncate(step.Target, maxLoggedURLLen)),
	)

	if step.PostHook == nil {
		return Continue(resp)
	}
	return step.PostHook(ctx, resp, e.state)
}

// truncate shortens s to max runes. Cutting on a rune boundary keeps
// Cyrillic response bodies valid UTF-8 in logs and errors.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
