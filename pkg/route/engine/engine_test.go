package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/kicad/schematic"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/grid"
)

// scriptInput replays a fixed sequence of operator events. Each Poll
// consumes one entry (nil means no input that tick, an exhausted script
// reports no input forever); each Wait consumes one wait entry.
type scriptInput struct {
	polls []*Event
	waits []Event
}

func (s *scriptInput) Poll() (Event, bool) {
	if len(s.polls) == 0 {
		return Event{}, false
	}
	ev := s.polls[0]
	s.polls = s.polls[1:]
	if ev == nil {
		return Event{}, false
	}
	return *ev, true
}

func (s *scriptInput) Wait() Event {
	if len(s.waits) == 0 {
		return Event{}
	}
	ev := s.waits[0]
	s.waits = s.waits[1:]
	return ev
}

type commit struct {
	net    string
	number int
	trail  []grid.Point
}

type captureSink struct {
	commits []commit
	fail    error
}

func (c *captureSink) CommitTrail(netName string, netNumber int, trail []grid.Point) (int, error) {
	if c.fail != nil {
		return 0, c.fail
	}
	cp := append([]grid.Point(nil), trail...)
	c.commits = append(c.commits, commit{net: netName, number: netNumber, trail: cp})
	return len(trail) - 1, nil
}

type captureRecorder struct {
	recs []NetRecord
}

func (r *captureRecorder) RecordNet(rec NetRecord) error {
	r.recs = append(r.recs, rec)
	return nil
}

var (
	netSig = &pcb.Net{Number: 7, Name: "SIG"}
	netAux = &pcb.Net{Number: 8, Name: "AUX"}
)

func fp(ref string, pads ...pcb.Pad) pcb.Footprint {
	return pcb.Footprint{Reference: ref, Pads: pads}
}

func pad(num string, x, y float64, net *pcb.Net) pcb.Pad {
	return pcb.Pad{Number: num, Position: pcb.Position{X: x, Y: y}, Net: net}
}

func indexOf(fps ...pcb.Footprint) *pcb.PadIndex {
	return pcb.BuildPadIndex(&pcb.Board{Footprints: fps})
}

func pt(x, y int) grid.Point {
	return grid.Point{X: x, Y: y}
}

// testConfig and testGridMapper put real coordinates and grid cells in
// 1:1 correspondence: bounds 0..19 over a 20x20 grid with no padding.
func testConfig() Config {
	return Config{GridW: 20, GridH: 20, Tick: 0}
}

func testGridMapper() grid.Mapper {
	return grid.Mapper{
		Bounds: grid.Bounds{MinX: 0, MaxX: 19, MinY: 0, MaxY: 19},
		GridW:  20,
		GridH:  20,
	}
}

func TestRouteStraightLine(t *testing.T) {
	ix := indexOf(fp("R1", pad("1", 5, 5, netSig), pad("2", 8, 5, netSig)))
	nets := []schematic.Net{{Name: "SIG", Pins: []string{"R1:1", "R1:2"}}}

	in := &scriptInput{waits: []Event{{}}}
	sink := &captureSink{}
	rec := &captureRecorder{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil,
		WithSink(sink), WithRecorder(rec))
	require.NoError(t, s.Run())

	require.Len(t, sink.commits, 1)
	c := sink.commits[0]
	assert.Equal(t, "SIG", c.net)
	assert.Equal(t, 7, c.number)

	// Three seeded cells ending at the start pad, then three steps right
	want := []grid.Point{pt(3, 5), pt(4, 5), pt(5, 5), pt(6, 5), pt(7, 5), pt(8, 5)}
	assert.Equal(t, want, c.trail)

	for _, p := range want {
		assert.Equal(t, MarkerFor(0), s.Occupied()[p], "cell %+v not committed", p)
	}

	require.Len(t, rec.recs, 1)
	assert.Equal(t, "routed", rec.recs[0].Outcome)
	assert.Equal(t, 5, rec.recs[0].Segments)
	assert.Equal(t, 0, rec.recs[0].Restarts)
}

func TestReversalInputIgnored(t *testing.T) {
	ix := indexOf(fp("R1", pad("1", 5, 5, netSig), pad("2", 8, 5, netSig)))
	nets := []schematic.Net{{Name: "SIG", Pins: []string{"R1:1", "R1:2"}}}

	// Left exactly reverses the initial rightward heading
	in := &scriptInput{
		polls: []*Event{{Dir: grid.DirLeft}},
		waits: []Event{{}},
	}
	sink := &captureSink{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil, WithSink(sink))
	require.NoError(t, s.Run())

	require.Len(t, sink.commits, 1)
	assert.Equal(t,
		[]grid.Point{pt(3, 5), pt(4, 5), pt(5, 5), pt(6, 5), pt(7, 5), pt(8, 5)},
		sink.commits[0].trail)
}

func TestCollisionRestartDiscardsAbortedTrail(t *testing.T) {
	ix := indexOf(
		fp("R1", pad("1", 5, 5, netSig), pad("2", 8, 5, netSig)),
		fp("R3", pad("1", 5, 10, netAux), pad("2", 8, 10, netAux)),
	)
	nets := []schematic.Net{
		{Name: "SIG", Pins: []string{"R1:1", "R1:2"}},
		{Name: "AUX", Pins: []string{"R3:1", "R3:2"}},
	}

	// SIG routes straight in exactly three ticks. AUX then steers up on
	// its first tick, walks into SIG's trace at (5,5), restarts and runs
	// straight to its second pad.
	in := &scriptInput{
		polls: []*Event{nil, nil, nil, {Dir: grid.DirUp}},
		waits: []Event{{}, {}, {}},
	}
	sink := &captureSink{}
	rec := &captureRecorder{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil,
		WithSink(sink), WithRecorder(rec))
	require.NoError(t, s.Run())

	require.Len(t, sink.commits, 2)
	aux := sink.commits[1]
	assert.Equal(t, "AUX", aux.net)
	assert.Equal(t, 8, aux.number)
	assert.Equal(t,
		[]grid.Point{pt(3, 10), pt(4, 10), pt(5, 10), pt(6, 10), pt(7, 10), pt(8, 10)},
		aux.trail)

	// Nothing from the aborted upward attempt survives
	for _, p := range aux.trail {
		assert.Equal(t, 10, p.Y)
	}
	for cell, marker := range s.Occupied() {
		if marker == MarkerFor(1) {
			assert.Equal(t, 10, cell.Y, "aborted attempt cell %+v committed", cell)
		}
	}

	require.Len(t, rec.recs, 2)
	assert.Equal(t, "routed", rec.recs[1].Outcome)
	assert.Equal(t, 1, rec.recs[1].Restarts)
}

func TestForeignPadCollision(t *testing.T) {
	// R9:1 belongs to a different net and sits directly in SIG's path
	ix := indexOf(
		fp("R1", pad("1", 5, 5, netSig), pad("2", 8, 5, netSig)),
		fp("R9", pad("1", 6, 5, netAux)),
	)
	nets := []schematic.Net{{Name: "SIG", Pins: []string{"R1:1", "R1:2"}}}

	in := &scriptInput{waits: []Event{{Quit: true}}}
	sink := &captureSink{}
	rec := &captureRecorder{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil,
		WithSink(sink), WithRecorder(rec))
	assert.ErrorIs(t, s.Run(), ErrQuit)

	assert.Empty(t, sink.commits)
	assert.Empty(t, s.Occupied())

	require.Len(t, rec.recs, 1)
	assert.Equal(t, "quit", rec.recs[0].Outcome)
	assert.Equal(t, 1, rec.recs[0].Restarts)
}

func TestOwnPadIsNotACollision(t *testing.T) {
	// The net's own second pad lies between start and a third pad;
	// crossing it must not trigger a collision.
	ix := indexOf(fp("R1",
		pad("1", 5, 5, netSig),
		pad("2", 7, 5, netSig),
		pad("3", 9, 5, netSig),
	))
	nets := []schematic.Net{{Name: "SIG", Pins: []string{"R1:1", "R1:2", "R1:3"}}}

	in := &scriptInput{waits: []Event{{}}}
	sink := &captureSink{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil, WithSink(sink))
	require.NoError(t, s.Run())

	require.Len(t, sink.commits, 1)
	assert.Equal(t,
		[]grid.Point{pt(3, 5), pt(4, 5), pt(5, 5), pt(6, 5), pt(7, 5), pt(8, 5), pt(9, 5)},
		sink.commits[0].trail)
}

func TestFatalStartCollision(t *testing.T) {
	// AUX's start pad sits on a cell SIG's seeded trail covers, so by
	// the time AUX starts the cell is committed trace.
	ix := indexOf(
		fp("R1", pad("1", 5, 5, netSig), pad("2", 8, 5, netSig)),
		fp("R2", pad("1", 4, 5, netAux), pad("2", 8, 8, netAux)),
	)
	nets := []schematic.Net{
		{Name: "SIG", Pins: []string{"R1:1", "R1:2"}},
		{Name: "AUX", Pins: []string{"R2:1", "R2:2"}},
	}

	in := &scriptInput{waits: []Event{{}}}
	rec := &captureRecorder{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil, WithRecorder(rec))
	assert.ErrorIs(t, s.Run(), ErrFatalCollision)

	require.Len(t, rec.recs, 2)
	assert.Equal(t, "routed", rec.recs[0].Outcome)
	assert.Equal(t, "fatal-collision", rec.recs[1].Outcome)
}

func TestQuitDuringRouting(t *testing.T) {
	ix := indexOf(fp("R1", pad("1", 5, 5, netSig), pad("2", 8, 5, netSig)))
	nets := []schematic.Net{{Name: "SIG", Pins: []string{"R1:1", "R1:2"}}}

	in := &scriptInput{polls: []*Event{{Quit: true}}}
	rec := &captureRecorder{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil, WithRecorder(rec))
	assert.ErrorIs(t, s.Run(), ErrQuit)

	require.Len(t, rec.recs, 1)
	assert.Equal(t, "quit", rec.recs[0].Outcome)
	assert.Equal(t, 0, rec.recs[0].Restarts)
}

func TestNetWithoutBoardPadsSkipped(t *testing.T) {
	ix := indexOf(fp("R1", pad("1", 5, 5, netSig), pad("2", 8, 5, netSig)))
	nets := []schematic.Net{
		{Name: "GHOST", Pins: []string{"Z9:1", "Z9:2"}},
		{Name: "SIG", Pins: []string{"R1:1", "R1:2"}},
	}

	in := &scriptInput{waits: []Event{{}}}
	sink := &captureSink{}
	rec := &captureRecorder{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil,
		WithSink(sink), WithRecorder(rec))
	require.NoError(t, s.Run())

	// GHOST never touches the sink; SIG routes normally afterwards
	require.Len(t, sink.commits, 1)
	assert.Equal(t, "SIG", sink.commits[0].net)

	require.Len(t, rec.recs, 2)
	assert.Equal(t, "skipped", rec.recs[0].Outcome)
	assert.Equal(t, "routed", rec.recs[1].Outcome)
}

func TestNetWithOneBoardPadSkipped(t *testing.T) {
	// HALF's second pin exists only in the schematic; with one board pad
	// there is no target left after the start, so the net must be
	// skipped instead of routed.
	ix := indexOf(fp("R1",
		pad("1", 5, 5, netAux),
		pad("2", 8, 5, netSig),
		pad("3", 11, 5, netSig),
	))
	nets := []schematic.Net{
		{Name: "HALF", Pins: []string{"R1:1", "Z9:2"}},
		{Name: "SIG", Pins: []string{"R1:2", "R1:3"}},
	}

	in := &scriptInput{waits: []Event{{}}}
	sink := &captureSink{}
	rec := &captureRecorder{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil,
		WithSink(sink), WithRecorder(rec))
	require.NoError(t, s.Run())

	require.Len(t, rec.recs, 2)
	assert.Equal(t, "skipped", rec.recs[0].Outcome)
	assert.Equal(t, "routed", rec.recs[1].Outcome)

	// Only SIG touched the board
	require.Len(t, sink.commits, 1)
	assert.Equal(t, "SIG", sink.commits[0].net)
}

func TestPersistFailureContinuesSession(t *testing.T) {
	ix := indexOf(
		fp("R1", pad("1", 5, 5, netSig), pad("2", 8, 5, netSig)),
	)
	nets := []schematic.Net{{Name: "SIG", Pins: []string{"R1:1", "R1:2"}}}

	in := &scriptInput{waits: []Event{{}}}
	sink := &captureSink{fail: assert.AnError}
	rec := &captureRecorder{}

	s := NewSession(testConfig(), testGridMapper(), ix, nets, in, nil,
		WithSink(sink), WithRecorder(rec))
	require.NoError(t, s.Run())

	assert.Empty(t, sink.commits)
	require.Len(t, rec.recs, 1)
	assert.Equal(t, "persist-failed", rec.recs[0].Outcome)

	// The trail is still committed to the occupancy map
	assert.Equal(t, MarkerFor(0), s.Occupied()[pt(5, 5)])
}

func TestMarkerCycle(t *testing.T) {
	assert.Equal(t, '0', MarkerFor(0))
	assert.Equal(t, '9', MarkerFor(9))
	assert.Equal(t, 'A', MarkerFor(10))
	assert.Equal(t, 'a', MarkerFor(36))
	assert.Equal(t, '0', MarkerFor(62))
}
