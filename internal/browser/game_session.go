// File: internal/browser/game_session.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibixina/climbinggame/internal/config"
)

// Session owns one headless browser process and the single tab that hosts the
// game page. Every environment instance holds exactly one Session; nothing is
// shared between instances.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process. The tab context derives from it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	tabCtx          context.Context
	tabCancel       context.CancelFunc

	closeOnce sync.Once
}

// NewSession launches the browser process, opens a tab, and verifies it is
// responsive. The caller owns the Session and must Close it.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	id := uuid.New().String()
	s := &Session{
		id:     id,
		logger: logger.Named("browser").With(zap.String("session_id", id[:8])),
		cfg:    cfg,
	}

	opts := buildAllocatorOptions(cfg)
	s.allocatorCtx, s.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)
	s.tabCtx, s.tabCancel = chromedp.NewContext(s.allocatorCtx)

	// Run a trivial task to confirm the browser started and responds.
	testCtx, cancelTest := context.WithTimeout(s.tabCtx, 30*time.Second)
	defer cancelTest()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		s.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	s.logger.Info("Browser launched.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// buildAllocatorOptions assembles the Chrome flags for the game host instance.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("disable-extensions", true),
		// The game page is opened from file://.
		chromedp.Flag("allow-file-access-from-files", true),
	)

	// Flags required for running inside containers (e.g. Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}

	// Custom arguments from configuration.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	return opts
}

// ID returns the unique identifier for this session.
func (s *Session) ID() string {
	return s.id
}

// Navigate loads the given URL in the game tab and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))

	navCtx, cancel := combineContext(s.tabCtx, ctx)
	defer cancel()
	if s.cfg.NavigationTimeout > 0 {
		var cancelTimeout context.CancelFunc
		navCtx, cancelTimeout = context.WithTimeout(navCtx, s.cfg.NavigationTimeout)
		defer cancelTimeout()
	}

	if err := chromedp.Run(navCtx,
		// Always fetch the game page fresh; a recovery reload must not be
		// served a cached copy of a broken load.
		chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCacheDisabled(true).Do(ctx)
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %q failed: %w", url, err)
	}
	return nil
}

// Evaluate runs a JavaScript expression in the game tab and unmarshals its
// JSON result into out. A nil out discards the result.
func (s *Session) Evaluate(ctx context.Context, expr string, out any) error {
	evalCtx, cancel := combineContext(s.tabCtx, ctx)
	defer cancel()

	if err := chromedp.Run(evalCtx, chromedp.Evaluate(expr, out)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// Close terminates the tab and the browser process. Safe to call repeatedly.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session.")
		if s.tabCancel != nil {
			s.tabCancel()
		}
		if s.allocatorCancel != nil {
			s.allocatorCancel()
		}
		if s.allocatorCtx == nil {
			return
		}

		// Confirm the allocator context observed the cancellation; chromedp
		// reaps the browser process on its own once the context is done.
		<-s.allocatorCtx.Done()
		s.logger.Debug("Browser session closed.")
	})
	return nil
}

// combineContext creates a context that carries parentCtx's values (including
// the chromedp target) but is canceled when either context is canceled.
func combineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)

	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
