package captcha

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cadastre-cli/internal/resilience"
	"github.com/sells-group/cadastre-cli/internal/session"
)

// ErrAttemptsExhausted is returned when the gate ran out of attempts without
// producing a server-verified solution.
var ErrAttemptsExhausted = eris.New("captcha: attempt budget exhausted")

// gateState names the positions of the solve→verify state machine, used for
// tracing.
type gateState string

const (
	stateAwaitingChallenge gateState = "awaiting_challenge"
	stateRecognizing       gateState = "recognizing"
	stateVerifying         gateState = "verifying"
	stateVerified          gateState = "verified"
)

// GateConfig configures the captcha gate.
type GateConfig struct {
	// ChallengeURL serves the challenge image.
	ChallengeURL string

	// VerifyURL is the verification endpoint; the candidate solution is
	// appended as a path segment.
	VerifyURL string

	// Retry bounds the solve→verify loop. Every negative outcome (bad
	// challenge fetch, failed recognition, incorrect solution) consumes one
	// attempt and starts over with a fresh challenge.
	Retry resilience.RetryConfig
}

// Gate drives the captcha state machine for a single protected action:
// fetch a challenge, recognize it, verify the candidate server-side, and
// hand back the verified token. It owns no request logic beyond that; the
// token is consumed exactly once by the step that follows the gate.
type Gate struct {
	sess *session.Session
	rec  Recognizer
	cfg  GateConfig
}

// NewGate creates a gate bound to the shared session. Verification is tied
// to the session that issued the challenge, so the gate must use the same
// session as the rest of the pipeline.
func NewGate(sess *session.Session, rec Recognizer, cfg GateConfig) *Gate {
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("captcha", "solve_and_verify")
	}
	return &Gate{sess: sess, rec: rec, cfg: cfg}
}

// SolveAndVerify runs challenge cycles until a solution verifies or the
// attempt budget runs out. A solution is used at most once: after an
// Incorrect verification the candidate is discarded and a fresh challenge
// is requested.
func (g *Gate) SolveAndVerify(ctx context.Context) (string, error) {
	token, err := resilience.DoVal(ctx, g.cfg.Retry, g.cycle)
	if err == nil {
		zap.L().Info("captcha: verified", zap.String("state", string(stateVerified)))
		return token, nil
	}
	// A cancelled context also surfaces the last transient cycle error;
	// that is not an exhausted budget.
	if ctx.Err() != nil {
		return "", eris.Wrap(ctx.Err(), "captcha: solve and verify")
	}
	if resilience.IsTransient(err) {
		zap.L().Error("captcha: attempts exhausted",
			zap.Int("max_attempts", g.cfg.Retry.MaxAttempts),
			zap.Error(err),
		)
		return "", ErrAttemptsExhausted
	}
	return "", err
}

// cycle runs one pass of the state machine. Failures that should loop back
// to AwaitingChallenge are returned as transient errors; anything else is
// fatal to the gate.
func (g *Gate) cycle(ctx context.Context) (string, error) {
	log := zap.L()

	// AwaitingChallenge: fetch a fresh challenge image.
	log.Debug("captcha: state", zap.String("state", string(stateAwaitingChallenge)))
	challenge, err := g.sess.Send(ctx, http.MethodGet, g.cfg.ChallengeURL, nil, true)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "captcha: fetch challenge"), 0)
	}
	if challenge.StatusCode != http.StatusOK {
		return "", resilience.NewTransientError(
			eris.Errorf("captcha: challenge fetch returned status %d", challenge.StatusCode),
			challenge.StatusCode,
		)
	}

	// Recognizing: hand the image to the injected capability.
	log.Debug("captcha: state", zap.String("state", string(stateRecognizing)))
	candidate, err := g.rec.Recognize(ctx, challenge.Body)
	if eris.Is(err, ErrNoResult) {
		return "", resilience.NewTransientError(err, 0)
	}
	if err != nil {
		// The recognizer itself is broken; retrying with new images will
		// not help.
		return "", eris.Wrap(err, "captcha: recognize")
	}

	// Verifying: the server confirms or rejects the candidate within the
	// current session.
	log.Debug("captcha: state",
		zap.String("state", string(stateVerifying)),
		zap.String("candidate", candidate),
	)
	verify, err := g.sess.Send(ctx, http.MethodGet, g.cfg.VerifyURL+"/"+url.PathEscape(candidate), nil, true)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "captcha: verify"), 0)
	}
	if verify.StatusCode != http.StatusOK {
		log.Info("captcha: solution rejected",
			zap.String("candidate", candidate),
			zap.Int("status", verify.StatusCode),
		)
		return "", resilience.NewTransientError(
			eris.Errorf("captcha: solution %q rejected with status %d", candidate, verify.StatusCode),
			verify.StatusCode,
		)
	}

	return candidate, nil
}
