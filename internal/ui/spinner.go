package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a message on stderr while a long operation such as a full
// index runs. Without a terminal it stays silent.
type Spinner struct {
	out  io.Writer
	msg  string
	stop chan struct{}
	done sync.WaitGroup
	once sync.Once
}

// NewSpinner returns a spinner for stderr, or a silent one when stderr is
// not a terminal.
func NewSpinner(message string) *Spinner {
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return newSpinner(nil, message)
	}
	return newSpinner(os.Stderr, message)
}

// newSpinner writes frames to out. A nil out disables the animation.
func newSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{out: out, msg: message, stop: make(chan struct{})}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if s.out == nil {
		return
	}
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-s.stop:
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
				fmt.Fprintf(s.out, "\r%s %s", Bold.Render(spinnerFrames[frame%len(spinnerFrames)]), s.msg)
			}
		}
	}()
}

// Stop ends the animation and clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.done.Wait()
}
