package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/grid"
)

// Session owns all mutable routing state: the occupancy map, the
// current net's trail and the per-net state machine. It is the sole
// writer of that state and advances strictly sequentially, one net at
// a time, one tick at a time.
type Session struct {
	cfg    Config
	mapper grid.Mapper
	nets   []schematic.Net

	padCell map[string]grid.Point // "ref:pin" -> grid cell
	cellPad map[grid.Point]string // grid cell -> "ref:pin", foreign-pad checks
	padNet  map[string]int        // "ref:pin" -> board net number

	occupied map[grid.Point]rune // committed cells, append-only

	in   Input
	out  Renderer
	sink TrailSink
	rec  Recorder
	log  *zap.Logger

	// Per-attempt state, reset on every INIT
	state   State
	trail   []grid.Point
	heading grid.Direction
	next    int // index of the next unvisited pin in the net's pin list
}

// Option configures optional session collaborators
type Option func(*Session)

// WithSink attaches the trace persistence layer
func WithSink(sink TrailSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithRecorder attaches the session journal
func WithRecorder(rec Recorder) Option {
	return func(s *Session) { s.rec = rec }
}

// WithLogger attaches a structured logger
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// NewSession builds a session over the static snapshots: the extracted
// nets, the board pad index and the shared coordinate mapper derived
// from the pad bounding box.
func NewSession(cfg Config, mapper grid.Mapper, padIndex *pcb.PadIndex, nets []schematic.Net, in Input, out Renderer, opts ...Option) *Session {
	s := &Session{
		cfg:      cfg,
		mapper:   mapper,
		nets:     nets,
		padCell:  make(map[string]grid.Point),
		cellPad:  make(map[grid.Point]string),
		padNet:   make(map[string]int),
		occupied: make(map[grid.Point]rune),
		in:       in,
		out:      out,
		log:      zap.NewNop(),
	}

	for _, pad := range padIndex.Pads() {
		cell := mapper.ToGrid(pad.Position)
		s.padCell[pad.Key] = cell
		s.cellPad[cell] = pad.Key
		if pad.Net != nil {
			s.padNet[pad.Key] = pad.Net.Number
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Mapper returns the shared coordinate mapper
func (s *Session) Mapper() grid.Mapper {
	return s.mapper
}

// Occupied returns the committed occupancy map
func (s *Session) Occupied() map[grid.Point]rune {
	return s.occupied
}

// Run processes every net in extraction order. It returns nil when all
// nets are done, ErrQuit on operator abort and ErrFatalCollision when a
// net's starting pad is already covered by a trace.
func (s *Session) Run() error {
	for i := range s.nets {
		if err := s.runNet(i); err != nil {
			return err
		}
	}
	return nil
}

// runNet routes the i-th net to completion
func (s *Session) runNet(i int) error {
	net := s.nets[i]
	marker := MarkerFor(i)
	started := time.Now()
	restarts := 0

	// Pins without a board-side pad cannot be routed to
	pins := make([]string, 0, len(net.Pins))
	for _, p := range net.Pins {
		if _, ok := s.padCell[p]; ok {
			pins = append(pins, p)
		}
	}
	// One pad leaves nothing to route to: initAttempt marks the start
	// pad visited, so a single-pad net could never reach its last pin.
	if len(pins) < 2 {
		s.log.Warn("net has fewer than two board pads, skipping",
			zap.String("net", net.Name), zap.Int("pads", len(pins)))
		s.record(NetRecord{Net: net.Name, Marker: marker, Outcome: "skipped", Duration: time.Since(started)})
		return nil
	}

	start := s.padCell[pins[0]]

	if _, taken := s.occupied[start]; taken {
		s.log.Error("start pad covered by existing trace",
			zap.String("net", net.Name), zap.String("pad", pins[0]))
		s.frame(i, net, pins, marker,
			fmt.Sprintf("FATAL: start pad %s for net %s lies on an existing trace", pins[0], net.Name))
		s.record(NetRecord{Net: net.Name, Marker: marker, Restarts: restarts,
			Outcome: "fatal-collision", Duration: time.Since(started)})
		return ErrFatalCollision
	}

	s.initAttempt(start)
	s.log.Info("routing net",
		zap.String("net", net.Name),
		zap.Int("index", i+1),
		zap.Int("of", len(s.nets)),
		zap.Int("pins", len(pins)))

	for s.state != StateComplete {
		if s.cfg.Tick > 0 {
			time.Sleep(s.cfg.Tick)
		}

		if ev, ok := s.in.Poll(); ok {
			if ev.Quit {
				s.record(NetRecord{Net: net.Name, Marker: marker, Restarts: restarts,
					Outcome: "quit", Duration: time.Since(started)})
				return ErrQuit
			}
			s.steer(ev.Dir)
		}

		head := s.trail[len(s.trail)-1]
		nextCell := head.Step(s.heading, s.cfg.GridW, s.cfg.GridH)

		status := fmt.Sprintf("Routing net %s (%d/%d)  pins %d/%d  q=quit",
			net.Name, i+1, len(s.nets), s.next, len(pins))

		switch s.classify(nextCell, pins) {
		case hitTrace, hitForeignPad:
			s.state = StateCollision
			restarts++
			s.log.Info("collision, restarting attempt",
				zap.String("net", net.Name),
				zap.Int("restarts", restarts),
				zap.String("cell", fmt.Sprintf("(%d,%d)", nextCell.X, nextCell.Y)))
			s.frame(i, net, pins, marker,
				fmt.Sprintf("Collision: net %s blocked at (%d,%d). Press any key to restart, q to quit.",
					net.Name, nextCell.X, nextCell.Y))

			if ev := s.in.Wait(); ev.Quit {
				s.record(NetRecord{Net: net.Name, Marker: marker, Restarts: restarts,
					Outcome: "quit", Duration: time.Since(started)})
				return ErrQuit
			}
			s.initAttempt(start)
			continue

		case hitFree:
			s.trail = append(s.trail, nextCell)

			if s.next < len(pins) && nextCell == s.padCell[pins[s.next]] {
				s.next++
				if s.next == len(pins) {
					s.state = StateComplete
				}
			}
		}

		s.frame(i, net, pins, marker, status)
	}

	// COMPLETE: the whole trail becomes permanent trace
	for _, cell := range s.trail {
		s.occupied[cell] = marker
	}

	segments := 0
	if s.sink != nil {
		netNumber, ok := s.padNet[pins[0]]
		if !ok {
			s.log.Warn("first pad has no board net, trace not persisted",
				zap.String("net", net.Name), zap.String("pad", pins[0]))
		} else {
			n, err := s.sink.CommitTrail(net.Name, netNumber, s.trail)
			if err != nil {
				s.log.Error("trace persistence failed",
					zap.String("net", net.Name), zap.Error(err))
				s.frame(i, net, pins, marker,
					fmt.Sprintf("Net %s routed but persisting failed: %v. Press any key to continue.", net.Name, err))
				s.record(NetRecord{Net: net.Name, Marker: marker, Restarts: restarts,
					Outcome: "persist-failed", Duration: time.Since(started)})
				if ev := s.in.Wait(); ev.Quit {
					return ErrQuit
				}
				return nil
			}
			segments = n
		}
	}

	s.log.Info("net routed",
		zap.String("net", net.Name),
		zap.Int("cells", len(s.trail)),
		zap.Int("segments", segments),
		zap.Int("restarts", restarts))
	s.frame(i, net, pins, marker,
		fmt.Sprintf("Net %s routed, %d segments written. Press any key to continue.", net.Name, segments))
	if ev := s.in.Wait(); ev.Quit {
		s.record(NetRecord{Net: net.Name, Marker: marker, Segments: segments,
			Restarts: restarts, Outcome: "routed", Duration: time.Since(started)})
		return ErrQuit
	}

	s.record(NetRecord{Net: net.Name, Marker: marker, Segments: segments,
		Restarts: restarts, Outcome: "routed", Duration: time.Since(started)})
	return nil
}

// initAttempt seeds a fresh trail of fixed length ending at the start
// cell, heading right. Any previous attempt's trail is discarded whole.
func (s *Session) initAttempt(start grid.Point) {
	s.trail = s.trail[:0]

	for i := initialTrailLen - 1; i >= 0; i-- {
		cell := grid.Point{
			X: ((start.X-i)%s.cfg.GridW + s.cfg.GridW) % s.cfg.GridW,
			Y: start.Y,
		}
		s.trail = append(s.trail, cell)
	}

	s.heading = grid.DirRight
	s.next = 1 // the start pad counts as visited
	s.state = StateRunning
}

// steer applies a direction input; an input that exactly reverses the
// current heading is ignored.
func (s *Session) steer(d grid.Direction) {
	if d == grid.DirNone || d == s.heading.Opposite() {
		return
	}
	s.heading = d
}

type cellHit int

const (
	hitFree cellHit = iota
	hitTrace
	hitForeignPad
)

// classify checks the next head cell against, in order: committed
// traces, then pads that do not belong to this net.
func (s *Session) classify(cell grid.Point, pins []string) cellHit {
	if _, taken := s.occupied[cell]; taken {
		return hitTrace
	}

	if pad, ok := s.cellPad[cell]; ok {
		for _, p := range pins {
			if p == pad {
				return hitFree
			}
		}
		return hitForeignPad
	}

	return hitFree
}

// frame renders one frame of the current state
func (s *Session) frame(i int, net schematic.Net, pins []string, marker rune, status string) {
	if s.out == nil {
		return
	}

	v := &View{
		GridW:    s.cfg.GridW,
		GridH:    s.cfg.GridH,
		Pads:     s.cellPad,
		Occupied: s.occupied,
		Trail:    s.trail,
		Marker:   marker,
		NetName:  net.Name,
		NetIndex: i,
		NetCount: len(s.nets),
		Visited:  s.next,
		PinCount: len(pins),
		Status:   status,
	}
	if s.next < len(pins) {
		cell := s.padCell[pins[s.next]]
		v.Target = &cell
	}

	s.out.Frame(v)
}

// record writes a journal row, logging failures without escalating
func (s *Session) record(rec NetRecord) {
	if s.rec == nil {
		return
	}
	if err := s.rec.RecordNet(rec); err != nil {
		s.log.Warn("session journal write failed", zap.Error(err))
	}
}
