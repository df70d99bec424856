// Package captcha drives the solve→verify→retry loop that unlocks the
// registry's protected object-search endpoint.
package captcha

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cadastre-cli/internal/config"
	"github.com/sells-group/cadastre-cli/pkg/anticaptcha"
)

// ErrNoResult is returned by a Recognizer when it produced no usable string
// for the challenge image. A failed recognition is never retried against the
// same image; the gate requests a fresh challenge instead.
var ErrNoResult = eris.New("captcha: recognizer returned no result")

// Recognizer turns a challenge image into a candidate solution string. It
// has no side effects and must be callable repeatedly, once per challenge.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// NewRecognizer creates a Recognizer based on config.
func NewRecognizer(cfg config.CaptchaConfig, ac config.AnticaptchaConfig) (Recognizer, error) {
	switch cfg.Provider {
	case "command", "":
		return NewCommandRecognizer(cfg.CommandPath), nil
	case "anticaptcha":
		if ac.Key == "" {
			return nil, eris.New("captcha: anticaptcha provider requires anticaptcha.key")
		}
		opts := []anticaptcha.Option{}
		if ac.BaseURL != "" {
			opts = append(opts, anticaptcha.WithBaseURL(ac.BaseURL))
		}
		return &serviceRecognizer{client: anticaptcha.NewClient(ac.Key, opts...)}, nil
	default:
		return nil, eris.Errorf("captcha: unknown provider %q", cfg.Provider)
	}
}

// serviceRecognizer adapts the anti-captcha client to the Recognizer
// interface.
type serviceRecognizer struct {
	client anticaptcha.Client
}

func (r *serviceRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	text, err := r.client.SolveImage(ctx, image)
	if eris.Is(err, anticaptcha.ErrNoSolution) {
		return "", ErrNoResult
	}
	if err != nil {
		return "", err
	}
	return text, nil
}
