package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Spinner displays an animated spinner with a message while a blocking call runs.
type Spinner struct {
	out     io.Writer
	message string
	frames  []string
	animate bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// Default spinner frames (dots style)
var defaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a spinner writing to out. It only animates when out is a
// terminal; otherwise Start prints the message once.
func NewSpinner(out io.Writer, message string) *Spinner {
	animate := false
	if f, ok := out.(*os.File); ok {
		animate = isatty.IsTerminal(f.Fd())
	}
	return &Spinner{
		out:     out,
		message: message,
		frames:  defaultFrames,
		animate: animate,
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	if !s.animate {
		fmt.Fprintf(s.out, "%s...\n", s.message)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.done:
				fmt.Fprint(s.out, "\r\033[K")
				return
			case <-ticker.C:
				fmt.Fprintf(s.out, "\r%s %s", Bold.Render(s.frames[i%len(s.frames)]), s.message)
			}
		}
	}()
}

// Stop stops the spinner and clears its line.
func (s *Spinner) Stop() {
	if !s.animate {
		return
	}
	close(s.done)
	s.wg.Wait()
}
