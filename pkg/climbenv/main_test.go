// File: pkg/climbenv/main_test.go
package climbenv

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// The browser integration test tears Chrome down asynchronously; chromedp
	// goroutines may outlive the test body briefly.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/chromedp/chromedp.(*Browser).run"),
	)
}
