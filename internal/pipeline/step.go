// Package pipeline runs the ordered, captcha-gated request workflow against
// the registry: an initialization sequence that seeds cookies and reference
// dictionaries, then a per-entity parsing sequence.
package pipeline

import (
	"context"

	"github.com/sells-group/cadastre-cli/internal/model"
	"github.com/sells-group/cadastre-cli/internal/refdata"
	"github.com/sells-group/cadastre-cli/internal/session"
)

// State is the shared mutable state of one pipeline run. It is owned by one
// executor and mutated only by step hooks on the executing goroutine.
type State struct {
	// CadNumber is the entity currently being processed; set before each
	// parsing sequence, read by pre-hooks.
	CadNumber string

	// CaptchaToken is the last server-verified captcha solution. Written by
	// the gate step, consumed by the data-fetch step that follows it, and
	// overwritten on every gate cycle.
	CaptchaToken string

	// RefData is the reference-dictionary cache, populated once per run.
	RefData *refdata.Cache

	// Results accumulates one normalized record per successfully resolved
	// entity. It never holds partial entries.
	Results []model.Record
}

// NewState creates the state for one run around an existing cache.
func NewState(cache *refdata.Cache) *State {
	return &State{RefData: cache}
}

// DrainResults returns the accumulated records and clears the buffer.
func (s *State) DrainResults() []model.Record {
	out := s.Results
	s.Results = nil
	return out
}

// PreHook computes the request payload from shared state before a step is
// sent. It must not mutate anything outside the state.
type PreHook func(st *State) any

// PostHook processes a step's response and decides how the executor
// proceeds.
type PostHook func(ctx context.Context, resp *session.Response, st *State) Outcome

// DoFunc is a local step body: a step that performs no HTTP call of its own
// and instead delegates (the captcha gate). Redo and Fatal outcomes apply
// to it like to any other step.
type DoFunc func(ctx context.Context, st *State) Outcome

// Step declaratively describes one pipeline step. Steps are pure
// descriptions: the executor never mutates them, so a sequence is reusable
// across runs.
type Step struct {
	Name   string
	Method string
	Target string

	// BypassProxy dials directly even when the session has a proxy
	// configured.
	BypassProxy bool

	PreHook  PreHook
	PostHook PostHook

	// Do replaces the HTTP call entirely when set.
	Do DoFunc
}

type outcomeKind int

const (
	outcomeContinue outcomeKind = iota
	outcomeRedo
	outcomeFatal
)

// Outcome is a post-hook's instruction to the executor.
type Outcome struct {
	kind outcomeKind
	resp *session.Response
	err  error
}

// Continue accepts the step; resp may substitute the raw HTTP response.
// A step with no post-hook always continues.
func Continue(resp *session.Response) Outcome {
	return Outcome{kind: outcomeContinue, resp: resp}
}

// Redo instructs the executor to re-run the same step from the top:
// pre-hook, send, post-hook.
func Redo() Outcome {
	return Outcome{kind: outcomeRedo}
}

// Fatal aborts the whole run with err.
func Fatal(err error) Outcome {
	return Outcome{kind: outcomeFatal, err: err}
}
