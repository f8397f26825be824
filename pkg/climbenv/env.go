// File: pkg/climbenv/env.go
package climbenv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ibixina/climbinggame/internal/browser"
	"github.com/ibixina/climbinggame/internal/config"
)

// The two entry points the loaded game page exposes. They are external
// collaborators; everything behind them is opaque to the adapter.
const (
	resetExpr   = "window.resetGame();"
	stepExprFmt = "window.step(%s);"
)

// scriptRunner is the slice of the browser session the environment needs.
// *browser.Session satisfies it; tests substitute fakes.
type scriptRunner interface {
	Navigate(ctx context.Context, url string) error
	Evaluate(ctx context.Context, expr string, out any) error
	Close(ctx context.Context) error
}

// StepResult packages everything one environment step returns. Truncated is
// always false: the game defines no episode limit separate from its own
// termination conditions.
type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        map[string]any
}

// stepPayload is the wire form of window.step's return value.
type stepPayload struct {
	Observation observationPayload `json:"observation"`
	Reward      float64            `json:"reward"`
	Done        bool               `json:"done"`
	Info        map[string]any     `json:"info"`
}

// Env adapts the browser-hosted climbing game to a reset/step environment
// contract. All operations are synchronous and block until the browser
// responds; an Env must not be shared across goroutines.
type Env struct {
	logger  *zap.Logger
	gameURL string
	warmup  time.Duration

	dial    func(ctx context.Context) (scriptRunner, error)
	session scriptRunner
}

// New constructs an environment and eagerly establishes its browser session:
// it launches Chrome, navigates to the game page, and waits the configured
// warm-up interval for the embedded game to initialize. The caller must
// Close the returned Env to release the browser process.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Env, error) {
	gameURL, err := cfg.Browser.ResolvedGamePath()
	if err != nil {
		return nil, err
	}

	browserCfg := cfg.Browser
	e := &Env{
		logger:  logger.Named("climbenv"),
		gameURL: gameURL,
		warmup:  browserCfg.WarmupWait,
		dial: func(ctx context.Context) (scriptRunner, error) {
			return browser.NewSession(ctx, browserCfg, logger)
		},
	}

	if err := e.connect(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// newEnv constructs the environment for WithEnv. A variable so tests can
// substitute a fake-session construction.
var newEnv = New

// WithEnv runs fn against a freshly constructed environment and guarantees
// the browser session is released on every exit path, including panics.
func WithEnv(ctx context.Context, cfg *config.Config, logger *zap.Logger, fn func(*Env) error) error {
	env, err := newEnv(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close(ctx)
	return fn(env)
}

// connect establishes the browser session and loads the game page.
func (e *Env) connect(ctx context.Context) error {
	session, err := e.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to establish browser session: %w", err)
	}
	e.session = session

	if err := e.loadGame(ctx); err != nil {
		session.Close(ctx)
		e.session = nil
		return err
	}
	return nil
}

// loadGame navigates the live session to the game page and waits the warm-up
// interval so the embedded game can finish initializing.
func (e *Env) loadGame(ctx context.Context) error {
	if err := e.session.Navigate(ctx, e.gameURL); err != nil {
		return err
	}
	if e.warmup > 0 {
		select {
		case <-time.After(e.warmup):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ResetOption configures a Reset call.
type ResetOption func(*resetRequest)

type resetRequest struct {
	seed    *int64
	options map[string]any
}

// WithSeed requests deterministic episode initialization. The game exposes no
// seeding hook, so the seed is recorded in the logs and otherwise ignored.
func WithSeed(seed int64) ResetOption {
	return func(r *resetRequest) { r.seed = &seed }
}

// WithOptions attaches caller options to the reset. The game consumes none,
// so they are accepted for interface compatibility only.
func WithOptions(options map[string]any) ResetOption {
	return func(r *resetRequest) { r.options = options }
}

// Reset starts a new episode and returns its first observation together with
// an auxiliary info mapping, which is always empty.
//
// If no live session exists one is established first. If the reset evaluation
// fails for any reason, the adapter reloads the game page, waits the warm-up
// interval, and retries exactly once; a second failure propagates.
func (e *Env) Reset(ctx context.Context, opts ...ResetOption) (Observation, map[string]any, error) {
	var req resetRequest
	for _, opt := range opts {
		opt(&req)
	}
	if req.seed != nil {
		e.logger.Debug("Reset seed has no effect; the game exposes no seeding hook.",
			zap.Int64("seed", *req.seed))
	}

	if e.session == nil {
		if err := e.connect(ctx); err != nil {
			return Observation{}, nil, err
		}
	}

	var payload observationPayload
	if err := e.session.Evaluate(ctx, resetExpr, &payload); err != nil {
		e.logger.Warn("Reset evaluation failed; reloading game page and retrying once.", zap.Error(err))

		if err := e.loadGame(ctx); err != nil {
			return Observation{}, nil, fmt.Errorf("game page reload during reset recovery failed: %w", err)
		}
		if err := e.session.Evaluate(ctx, resetExpr, &payload); err != nil {
			return Observation{}, nil, fmt.Errorf("reset failed after page reload: %w", err)
		}
	}

	obs, err := payload.toObservation()
	if err != nil {
		return Observation{}, nil, fmt.Errorf("reset produced a malformed observation: %w", err)
	}
	return obs, map[string]any{}, nil
}

// Step applies one action and returns the resulting transition. The action is
// trusted as-is: the adapter performs no range or shape checks. Evaluation
// failures propagate immediately and are never retried, since recovering
// mid-episode would corrupt episode semantics.
func (e *Env) Step(ctx context.Context, action Action) (StepResult, error) {
	if e.session == nil {
		return StepResult{}, fmt.Errorf("no live browser session; construct the environment or call Reset first")
	}

	encoded, err := json.Marshal(action)
	if err != nil {
		return StepResult{}, fmt.Errorf("failed to serialize action: %w", err)
	}

	var payload stepPayload
	expr := fmt.Sprintf(stepExprFmt, encoded)
	if err := e.session.Evaluate(ctx, expr, &payload); err != nil {
		return StepResult{}, err
	}

	obs, err := payload.Observation.toObservation()
	if err != nil {
		return StepResult{}, fmt.Errorf("step produced a malformed observation: %w", err)
	}

	info := payload.Info
	if info == nil {
		info = map[string]any{}
	}

	return StepResult{
		Observation: obs,
		Reward:      payload.Reward,
		Terminated:  payload.Done,
		Truncated:   false,
		Info:        info,
	}, nil
}

// Render is a no-op. When the environment runs with headless disabled, the
// browser window itself is the visual surface.
func (e *Env) Render() {}

// Close terminates the browser session and clears the handle. Calling Close
// on an already closed environment is a no-op.
func (e *Env) Close(ctx context.Context) error {
	if e.session == nil {
		return nil
	}
	err := e.session.Close(ctx)
	e.session = nil
	return err
}
