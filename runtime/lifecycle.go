// Package runtime implements the KAIREI agent registry and runtime (§4.8):
// the per-agent receive loop, lifecycle state machine, concurrency-bounded
// handler dispatch, and template scale-up/scale-down.
package runtime

import "github.com/kairei-project/kairei/kaireierr"

// Lifecycle is an agent's position in the state machine (§4.8): initial
// Created; start() -> Starting -> Running on success or Error on failure;
// stop() from Running -> Stopping -> Stopped; Error is sticky unless
// explicitly reset.
type Lifecycle int

const (
	Created Lifecycle = iota
	Starting
	Running
	Stopping
	Stopped
	Errored
)

func (l Lifecycle) String() string {
	switch l {
	case Created:
		return "Created"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	case Errored:
		return "Error"
	default:
		return "Unknown"
	}
}

// transitions enumerates every legal edge; anything absent is rejected.
var transitions = map[Lifecycle]map[Lifecycle]bool{
	Created:  {Starting: true},
	Starting: {Running: true, Errored: true},
	Running:  {Stopping: true, Errored: true},
	Stopping: {Stopped: true, Errored: true},
	Stopped:  {},
	Errored:  {},
}

func (l Lifecycle) canTransition(to Lifecycle) bool {
	return transitions[l][to]
}

// ErrInvalidTransition reports an illegal lifecycle edge.
var ErrInvalidTransition = kaireierr.New(kaireierr.KindAgent, "lifecycle", "invalid lifecycle transition")
