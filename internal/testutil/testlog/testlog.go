package testlog

import (
	"testing"

	"github.com/danmuck/layer23/internal/logging"
	logs "github.com/danmuck/smplog"
)

// Start configures test logging and attaches a stderr category target for t.
func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	target := logging.NewStderrTarget()
	target.SetAllFilter(true)
	t.Cleanup(logging.AddTarget(target))
	logs.Infof("test=%s", t.Name())
}
