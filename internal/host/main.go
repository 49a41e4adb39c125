package host

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/layer23/internal/app"
	"github.com/danmuck/layer23/internal/app/builtin"
	"github.com/danmuck/layer23/internal/config"
	logs "github.com/danmuck/smplog"
)

const banner = "layer23: GSM mobile station layer2/3 host runtime\n"

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitCode maps a run result to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, config.ErrHelpRequested):
		return ExitOK
	case errors.Is(err, config.ErrInvalidCaptureAddress),
		errors.Is(err, config.ErrInvalidARFCN),
		errors.Is(err, config.ErrInvalidPort),
		errors.Is(err, config.ErrInvalidArgument),
		errors.Is(err, config.ErrConfigFile):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// Main runs one process lifetime and returns its exit status. A nil catalog
// hosts the builtin applications.
func Main(args []string, stdout, stderr io.Writer, catalog *app.Catalog, opts Options) int {
	_, _ = io.WriteString(stdout, banner)
	cfg, err := config.Resolve(args, stdout)
	if err != nil {
		if !errors.Is(err, config.ErrHelpRequested) {
			_, _ = fmt.Fprintf(stderr, "%v\n", err)
		}
		return ExitCode(err)
	}
	if catalog == nil {
		catalog = builtin.Catalog()
	}

	rt := newRuntimeContext(cfg, catalog, opts, stderr)
	runErr := rt.Run()
	if runErr != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n", runErr)
	}
	if err := rt.Close(); err != nil {
		logs.Warnf("host.Main cleanup err=%v", err)
	}
	return ExitCode(runErr)
}
