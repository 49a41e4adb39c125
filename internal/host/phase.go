package host

import (
	"errors"
	"fmt"
)

var ErrLifecycleOrder = errors.New("host: invalid lifecycle transition")

// Phase describes the lifecycle controller state.
type Phase string

const (
	PhaseBootstrapping Phase = "bootstrapping"
	PhaseRunning       Phase = "running"
	PhaseShuttingDown  Phase = "shutting_down"
	PhaseTerminated    Phase = "terminated"
)

var phaseOrder = map[Phase]int{
	PhaseBootstrapping: 0,
	PhaseRunning:       1,
	PhaseShuttingDown:  2,
	PhaseTerminated:    3,
}

// canTransition allows forward moves only. Bootstrapping may skip Running
// when startup fails.
func canTransition(from, to Phase) bool {
	return phaseOrder[to] > phaseOrder[from]
}

func transitionError(from, to Phase) error {
	return fmt.Errorf("%w: %s -> %s", ErrLifecycleOrder, from, to)
}
