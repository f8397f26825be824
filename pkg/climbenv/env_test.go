// File: pkg/climbenv/env_test.go
package climbenv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ibixina/climbinggame/internal/config"
)

// fakeRunner is an in-memory stand-in for the browser session. Behavior is
// injected per test through the function fields.
type fakeRunner struct {
	navigateFn func(ctx context.Context, url string) error
	evaluateFn func(ctx context.Context, expr string, out any) error
	closeFn    func(ctx context.Context) error

	navigations []string
	evaluations []string
	closeCount  int
}

func (f *fakeRunner) Navigate(ctx context.Context, url string) error {
	f.navigations = append(f.navigations, url)
	if f.navigateFn != nil {
		return f.navigateFn(ctx, url)
	}
	return nil
}

func (f *fakeRunner) Evaluate(ctx context.Context, expr string, out any) error {
	f.evaluations = append(f.evaluations, expr)
	if f.evaluateFn != nil {
		return f.evaluateFn(ctx, expr, out)
	}
	return nil
}

func (f *fakeRunner) Close(ctx context.Context) error {
	f.closeCount++
	if f.closeFn != nil {
		return f.closeFn(ctx)
	}
	return nil
}

// fillResult unmarshals canned wire JSON into the out target the adapter
// passed to Evaluate, mimicking what chromedp does with the JS return value.
func fillResult(t *testing.T, out any, wire string) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(wire), out))
}

// validObsWire builds a well-shaped observation payload with the given
// vertical velocity at numeric index 3.
func validObsWire(vy float64) string {
	numeric := make([]string, NumericSize)
	for i := range numeric {
		numeric[i] = "0"
	}
	numeric[NumericVertVelocity] = fmt.Sprintf("%g", vy)

	cells := make([]string, GridRows*GridCols)
	for i := range cells {
		cells[i] = "0"
	}
	return fmt.Sprintf(`{"numeric":[%s],"grid":[%s]}`,
		strings.Join(numeric, ","), strings.Join(cells, ","))
}

// newTestEnv wires an Env to a fake session the way New would wire it to a
// real one. The fake counts as a live, already warmed-up session.
func newTestEnv(t *testing.T, runner *fakeRunner) *Env {
	t.Helper()
	return &Env{
		logger:  zaptest.NewLogger(t),
		gameURL: "file:///game/index_gym.html",
		warmup:  0,
		dial: func(ctx context.Context) (scriptRunner, error) {
			return runner, nil
		},
		session: runner,
	}
}

func TestReset(t *testing.T) {
	t.Run("returns fixed shapes immediately after construction", func(t *testing.T) {
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				fillResult(t, out, validObsWire(0))
				return nil
			},
		}
		env := newTestEnv(t, runner)

		obs, info, err := env.Reset(context.Background())
		require.NoError(t, err)

		assert.Equal(t, NumericSize, obs.Numeric.Len())
		rows, cols := obs.Grid.Dims()
		assert.Equal(t, GridRows, rows)
		assert.Equal(t, GridCols, cols)

		require.NotNil(t, info)
		assert.Empty(t, info)

		require.Len(t, runner.evaluations, 1)
		assert.Equal(t, resetExpr, runner.evaluations[0])
	})

	t.Run("accepts a nested grid wire form", func(t *testing.T) {
		row := "[" + strings.TrimSuffix(strings.Repeat("0.5,", GridCols), ",") + "]"
		wire := fmt.Sprintf(`{"numeric":[%s],"grid":[%s]}`,
			strings.TrimSuffix(strings.Repeat("1,", NumericSize), ","),
			strings.TrimSuffix(strings.Repeat(row+",", GridRows), ","))

		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				fillResult(t, out, wire)
				return nil
			},
		}
		env := newTestEnv(t, runner)

		obs, _, err := env.Reset(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0.5, obs.Grid.At(49, 49))
	})

	t.Run("recovers from a single failure via one reload and one retry", func(t *testing.T) {
		calls := 0
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				calls++
				if calls == 1 {
					return errors.New("Uncaught ReferenceError: resetGame is not defined")
				}
				fillResult(t, out, validObsWire(0))
				return nil
			},
		}
		env := newTestEnv(t, runner)

		obs, _, err := env.Reset(context.Background())
		require.NoError(t, err)
		assert.Equal(t, NumericSize, obs.Numeric.Len())

		// One reload, exactly two evaluation attempts.
		assert.Equal(t, []string{"file:///game/index_gym.html"}, runner.navigations)
		assert.Len(t, runner.evaluations, 2)
	})

	t.Run("second consecutive failure propagates", func(t *testing.T) {
		evalErr := errors.New("page crashed")
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				return evalErr
			},
		}
		env := newTestEnv(t, runner)

		_, _, err := env.Reset(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, evalErr)

		// No retry loop: one reload, two attempts, then done.
		assert.Len(t, runner.navigations, 1)
		assert.Len(t, runner.evaluations, 2)
	})

	t.Run("reload failure during recovery propagates without a retry", func(t *testing.T) {
		navErr := errors.New("net::ERR_FILE_NOT_FOUND")
		runner := &fakeRunner{
			navigateFn: func(ctx context.Context, url string) error {
				return navErr
			},
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				return errors.New("stale session")
			},
		}
		env := newTestEnv(t, runner)

		_, _, err := env.Reset(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, navErr)
		assert.Len(t, runner.evaluations, 1)
	})

	t.Run("re-establishes a session after Close", func(t *testing.T) {
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				fillResult(t, out, validObsWire(0))
				return nil
			},
		}
		env := newTestEnv(t, runner)
		require.NoError(t, env.Close(context.Background()))

		_, _, err := env.Reset(context.Background())
		require.NoError(t, err)

		// The fresh session navigated to the game page before evaluating.
		require.Len(t, runner.navigations, 1)
		assert.Len(t, runner.evaluations, 1)
	})

	t.Run("seed and options are accepted and ignored", func(t *testing.T) {
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				fillResult(t, out, validObsWire(0))
				return nil
			},
		}
		env := newTestEnv(t, runner)

		_, _, err := env.Reset(context.Background(),
			WithSeed(42), WithOptions(map[string]any{"difficulty": "max"}))
		require.NoError(t, err)
		assert.Equal(t, resetExpr, runner.evaluations[0])
	})

	t.Run("malformed observation surfaces as a conversion error", func(t *testing.T) {
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				fillResult(t, out, `{"numeric":[1,2,3],"grid":[0]}`)
				return nil
			},
		}
		env := newTestEnv(t, runner)

		_, _, err := env.Reset(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed observation")
	})
}

func TestStep(t *testing.T) {
	t.Run("serializes the action and returns the transition", func(t *testing.T) {
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				fillResult(t, out, fmt.Sprintf(
					`{"observation":%s,"reward":1.5,"done":false,"info":{"height":12.0}}`,
					validObsWire(0)))
				return nil
			},
		}
		env := newTestEnv(t, runner)

		result, err := env.Step(context.Background(), Action{0.1, -0.2, 0.3, 1, -1, 0})
		require.NoError(t, err)

		assert.Equal(t, 1.5, result.Reward)
		assert.False(t, result.Terminated)
		assert.False(t, result.Truncated)
		assert.Equal(t, map[string]any{"height": 12.0}, result.Info)
		assert.Equal(t, NumericSize, result.Observation.Numeric.Len())

		require.Len(t, runner.evaluations, 1)
		assert.Equal(t, "window.step([0.1,-0.2,0.3,1,-1,0]);", runner.evaluations[0])
	})

	t.Run("zero action on a fresh episode does not terminate", func(t *testing.T) {
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				if expr == resetExpr {
					fillResult(t, out, validObsWire(0))
					return nil
				}
				fillResult(t, out, fmt.Sprintf(
					`{"observation":%s,"reward":0,"done":false}`, validObsWire(0)))
				return nil
			},
		}
		env := newTestEnv(t, runner)

		_, _, err := env.Reset(context.Background())
		require.NoError(t, err)

		result, err := env.Step(context.Background(), Action{})
		require.NoError(t, err)
		assert.False(t, result.Terminated)
		assert.Equal(t, "window.step([0,0,0,0,0,0]);", runner.evaluations[1])
	})

	t.Run("missing info defaults to an empty map", func(t *testing.T) {
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				fillResult(t, out, fmt.Sprintf(
					`{"observation":%s,"reward":-0.1,"done":true}`, validObsWire(0)))
				return nil
			},
		}
		env := newTestEnv(t, runner)

		result, err := env.Step(context.Background(), Action{})
		require.NoError(t, err)
		assert.True(t, result.Terminated)
		assert.False(t, result.Truncated)
		require.NotNil(t, result.Info)
		assert.Empty(t, result.Info)
	})

	t.Run("evaluation failure propagates without any retry", func(t *testing.T) {
		evalErr := errors.New("Uncaught TypeError")
		runner := &fakeRunner{
			evaluateFn: func(ctx context.Context, expr string, out any) error {
				return evalErr
			},
		}
		env := newTestEnv(t, runner)

		_, err := env.Step(context.Background(), Action{})
		require.Error(t, err)
		assert.ErrorIs(t, err, evalErr)
		assert.Len(t, runner.evaluations, 1)
		assert.Empty(t, runner.navigations)
	})

	t.Run("fails when no session exists", func(t *testing.T) {
		runner := &fakeRunner{}
		env := newTestEnv(t, runner)
		require.NoError(t, env.Close(context.Background()))

		_, err := env.Step(context.Background(), Action{})
		require.Error(t, err)
		assert.Empty(t, runner.evaluations)
	})
}

// stubNewEnv routes WithEnv's construction to a fake-session environment and
// returns a restore function for defer.
func stubNewEnv(t *testing.T, runner *fakeRunner, constructErr error) func() {
	t.Helper()
	orig := newEnv
	newEnv = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Env, error) {
		if constructErr != nil {
			return nil, constructErr
		}
		return newTestEnv(t, runner), nil
	}
	return func() { newEnv = orig }
}

func TestWithEnv(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.NewDefaultConfig()

	t.Run("closes the session when fn succeeds", func(t *testing.T) {
		runner := &fakeRunner{}
		defer stubNewEnv(t, runner, nil)()

		err := WithEnv(context.Background(), cfg, logger, func(env *Env) error {
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, runner.closeCount)
	})

	t.Run("closes the session when fn returns an error", func(t *testing.T) {
		runner := &fakeRunner{}
		defer stubNewEnv(t, runner, nil)()

		fnErr := errors.New("agent blew up")
		err := WithEnv(context.Background(), cfg, logger, func(env *Env) error {
			return fnErr
		})
		assert.ErrorIs(t, err, fnErr)
		assert.Equal(t, 1, runner.closeCount)
	})

	t.Run("closes the session when fn panics", func(t *testing.T) {
		runner := &fakeRunner{}
		defer stubNewEnv(t, runner, nil)()

		assert.Panics(t, func() {
			_ = WithEnv(context.Background(), cfg, logger, func(env *Env) error {
				panic("mid-episode crash")
			})
		})
		assert.Equal(t, 1, runner.closeCount)
	})

	t.Run("construction failure surfaces and fn never runs", func(t *testing.T) {
		constructErr := errors.New("browser failed to start")
		defer stubNewEnv(t, nil, constructErr)()

		called := false
		err := WithEnv(context.Background(), cfg, logger, func(env *Env) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, constructErr)
		assert.False(t, called)
	})
}

func TestClose(t *testing.T) {
	t.Run("close twice is a no-op", func(t *testing.T) {
		runner := &fakeRunner{}
		env := newTestEnv(t, runner)

		require.NoError(t, env.Close(context.Background()))
		require.NoError(t, env.Close(context.Background()))
		assert.Equal(t, 1, runner.closeCount)
	})

	t.Run("close propagates session teardown errors once", func(t *testing.T) {
		closeErr := errors.New("browser already gone")
		runner := &fakeRunner{
			closeFn: func(ctx context.Context) error { return closeErr },
		}
		env := newTestEnv(t, runner)

		assert.ErrorIs(t, env.Close(context.Background()), closeErr)
		assert.NoError(t, env.Close(context.Background()))
	})
}
