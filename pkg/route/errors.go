package route

import "errors"

var (
	// ErrDeviceDefect marks a violation of the architecture contract, such
	// as a wire index outside the declared bound or a terminal without
	// interconnect. It aborts the run and is never retried.
	ErrDeviceDefect = errors.New("route: device defect")

	// ErrNotConverged reports that the round or time budget ran out with
	// overused wires or failed nets left. The best solution found is still
	// written back for inspection.
	ErrNotConverged = errors.New("route: routing did not converge")

	// ErrUnroutable reports that a net found no path within the expansion
	// budget in the current round.
	ErrUnroutable = errors.New("route: no path within expansion budget")
)
