// Package spinner draws a one-line progress indicator on a terminal.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner animates a message until stopped.
type Spinner struct {
	w io.Writer

	mu       sync.Mutex
	message  string
	maxWidth int

	done     chan struct{}
	cleared  chan struct{}
	stopOnce sync.Once
}

// Start displays an animated spinner with the given message on w.
// Call Stop to stop the spinner and clear the line.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	s.Update(message)

	go func() {
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				s.mu.Lock()
				fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.maxWidth+2)) //nolint:errcheck
				s.mu.Unlock()
				close(s.cleared)
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], padRight(s.message, s.maxWidth)) //nolint:errcheck
				s.mu.Unlock()
				i++
			}
		}
	}()
	return s
}

// Update replaces the message shown next to the spinner.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.maxWidth = max(s.maxWidth, runewidth.StringWidth(message))
}

// Stop stops the animation and clears the line. It is safe to call more
// than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.cleared
}

func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
