// File: cmd/smoke.go
package cmd

import (
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibixina/climbinggame/internal/config"
	"github.com/ibixina/climbinggame/internal/observability"
	"github.com/ibixina/climbinggame/pkg/climbenv"
)

var (
	smokeSteps    int
	smokeHeadless bool
	smokeGamePath string
)

// smokeCmd exercises the environment end to end with random actions. It is a
// manual sanity check against a real browser, not a benchmark or a test.
var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run a short random-action loop against the live game.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		applySmokeFlags(cmd, cfg)

		seed := cfg.Env.SmokeSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))

		ctx := cmd.Context()
		return climbenv.WithEnv(ctx, cfg, logger, func(env *climbenv.Env) error {
			obs, _, err := env.Reset(ctx)
			if err != nil {
				return err
			}
			rows, cols := obs.Grid.Dims()
			logger.Info("Initial observation",
				zap.Int("numeric_len", obs.Numeric.Len()),
				zap.Int("grid_rows", rows),
				zap.Int("grid_cols", cols),
			)

			for i := 0; i < cfg.Env.SmokeSteps; i++ {
				result, err := env.Step(ctx, climbenv.SampleAction(rng))
				if err != nil {
					return err
				}
				logger.Info("Step",
					zap.Int("n", i),
					zap.Float64("reward", result.Reward),
					zap.Bool("terminated", result.Terminated),
				)
				if result.Terminated {
					if _, _, err := env.Reset(ctx); err != nil {
						return err
					}
				}
			}
			return nil
		})
	},
}

// applySmokeFlags overlays explicitly-set command flags onto the resolved
// config. Flags the user did not pass leave the config values alone.
func applySmokeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("steps") {
		cfg.Env.SmokeSteps = smokeSteps
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = smokeHeadless
	}
	if cmd.Flags().Changed("game-path") {
		cfg.Browser.GamePath = smokeGamePath
	}
}

func init() {
	smokeCmd.Flags().IntVar(&smokeSteps, "steps", 10, "number of random actions to take")
	smokeCmd.Flags().BoolVar(&smokeHeadless, "headless", true, "run the browser headless")
	smokeCmd.Flags().StringVar(&smokeGamePath, "game-path", "", "URL of the game page (default: file://<cwd>/index_gym.html)")
	rootCmd.AddCommand(smokeCmd)
}
