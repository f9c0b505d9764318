// Package engine drives the interactive per-net routing session: a
// snake-style state machine that turns operator direction inputs into
// permanent grid trails, one net at a time.
package engine

import (
	"errors"
	"time"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/grid"
)

var (
	// ErrQuit is returned when the operator aborts the session.
	// Nets persisted before the quit stay persisted.
	ErrQuit = errors.New("routing session aborted by operator")

	// ErrFatalCollision is returned when a net's starting pad already
	// lies on an existing trace. There is no way to start a net on top
	// of a routed trail, so the whole session halts for inspection.
	ErrFatalCollision = errors.New("starting pad lies on an existing trace")
)

// State of the per-net machine
type State int

const (
	StateInit State = iota
	StateRunning
	StateCollision
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateCollision:
		return "collision"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// Event is one operator input
type Event struct {
	Dir  grid.Direction // DirNone when the event is not directional
	Quit bool
}

// Input is the operator input surface. The engine polls once per tick
// while running and blocks on Wait at collision/completion boundaries,
// so any backend (terminal, headless test harness) can drive it.
type Input interface {
	// Poll returns the next pending event without blocking
	Poll() (Event, bool)

	// Wait blocks until the next event
	Wait() Event
}

// View is everything a renderer needs for one frame
type View struct {
	GridW, GridH int

	Pads     map[grid.Point]string // pad cells -> "ref:pin"
	Occupied map[grid.Point]rune   // committed trace cells -> net marker
	Trail    []grid.Point          // current attempt, oldest first
	Marker   rune                  // current net marker

	Target   *grid.Point // next unvisited pin, nil when none remain
	NetName  string
	NetIndex int // zero-based position in the session
	NetCount int
	Visited  int // pins visited so far, including the start pad
	PinCount int

	Status string // prompt or progress line
}

// Renderer draws one frame per tick
type Renderer interface {
	Frame(v *View)
}

// TrailSink receives the ordered trail of each completed net.
// Implemented by the trace persistence layer; the engine does not care
// how trails are written back.
type TrailSink interface {
	CommitTrail(netName string, netNumber int, trail []grid.Point) (int, error)
}

// NetRecord summarizes one net's routing outcome for the session journal
type NetRecord struct {
	Net      string
	Marker   rune
	Segments int
	Restarts int
	Outcome  string // routed, skipped, quit, fatal-collision
	Duration time.Duration
}

// Recorder persists NetRecords. Recording failures are logged by the
// session, never fatal.
type Recorder interface {
	RecordNet(rec NetRecord) error
}

// Config holds the session's fixed parameters. Grid dimensions and
// padding feed the shared coordinate mapper and must match the values
// the persistence layer uses.
type Config struct {
	GridW, GridH    int
	FramePadding    int
	InteriorPadding int

	Tick time.Duration // render/poll cadence; 0 disables sleeping
}

// DefaultConfig mirrors the dimensions the extraction snapshots were
// tuned for.
func DefaultConfig() Config {
	return Config{
		GridW:           80,
		GridH:           40,
		FramePadding:    2,
		InteriorPadding: 4,
		Tick:            80 * time.Millisecond,
	}
}

// netMarkers is the cycle of occupancy markers assigned to nets
const netMarkers = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// MarkerFor returns the occupancy marker for the i-th net
func MarkerFor(i int) rune {
	return rune(netMarkers[i%len(netMarkers)])
}

// initialTrailLen is the seeded trail length at the start of every attempt
const initialTrailLen = 3
