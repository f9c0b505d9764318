// Package term is the interactive terminal backend for the routing
// engine: raw-mode key input and an ANSI grid renderer.
package term

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/engine"
	"github.com/OpenTraceLab/OpenTraceRoute/pkg/route/grid"
)

// Input reads operator keys from a raw-mode terminal. A reader
// goroutine decodes bytes into events and feeds a buffered channel, so
// the engine's per-tick Poll never blocks on the tty.
type Input struct {
	events  chan engine.Event
	fd      int
	old     *term.State
	restore sync.Once
}

// OpenInput switches stdin to raw mode and starts the key reader.
// Callers must Close to restore the terminal.
func OpenInput() (*Input, error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	in := &Input{
		events: make(chan engine.Event, 16),
		fd:     fd,
		old:    old,
	}
	go in.readLoop()

	return in, nil
}

// Close restores the terminal state. Callers both defer it and call it
// explicitly before printing, so only the first call restores.
func (in *Input) Close() error {
	var err error
	in.restore.Do(func() {
		err = term.Restore(in.fd, in.old)
	})
	return err
}

// Poll returns a pending event without blocking
func (in *Input) Poll() (engine.Event, bool) {
	select {
	case ev := <-in.events:
		return ev, true
	default:
		return engine.Event{}, false
	}
}

// Wait blocks until the next key
func (in *Input) Wait() engine.Event {
	return <-in.events
}

func (in *Input) readLoop() {
	r := bufio.NewReader(os.Stdin)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}

		var ev engine.Event
		switch b {
		case 'q', 'Q', 0x03: // q or Ctrl-C
			ev.Quit = true
		case 'w', 'W':
			ev.Dir = grid.DirUp
		case 's', 'S':
			ev.Dir = grid.DirDown
		case 'a', 'A':
			ev.Dir = grid.DirLeft
		case 'd', 'D':
			ev.Dir = grid.DirRight
		case 0x1b:
			dir, ok := in.readArrow(r)
			if !ok {
				continue
			}
			ev.Dir = dir
		default:
			// Any other key is a bare acknowledgement, delivered with
			// no direction so prompts can treat it as "continue"
		}

		in.events <- ev
	}
}

// readArrow decodes the CSI tail of an arrow key after the escape byte
func (in *Input) readArrow(r *bufio.Reader) (grid.Direction, bool) {
	b, err := r.ReadByte()
	if err != nil || b != '[' {
		return grid.DirNone, false
	}
	b, err = r.ReadByte()
	if err != nil {
		return grid.DirNone, false
	}

	switch b {
	case 'A':
		return grid.DirUp, true
	case 'B':
		return grid.DirDown, true
	case 'C':
		return grid.DirRight, true
	case 'D':
		return grid.DirLeft, true
	}
	return grid.DirNone, false
}
