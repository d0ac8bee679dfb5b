package ui

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/marekhanzlik/s3-glacier-restore/internal/ui/progress"
)

// Message reports progress with messages of different verbosity.
type Message struct {
	term Terminal
	v    uint
}

// NewMessage returns a message progress reporter with underlying terminal
// term.
func NewMessage(term Terminal, verbosity uint) *Message {
	return &Message{
		term: term,
		v:    verbosity,
	}
}

// E reports an error. This message is always printed to stderr.
func (m *Message) E(msg string, args ...interface{}) {
	m.term.Error(fmt.Sprintf(msg, args...))
}

// P prints a message if verbosity >= 1, this is used for normal messages which
// are not errors.
func (m *Message) P(msg string, args ...interface{}) {
	if m.v >= 1 {
		m.term.Print(fmt.Sprintf(msg, args...))
	}
}

// V prints a message if verbosity >= 2, this is used for verbose messages.
func (m *Message) V(msg string, args ...interface{}) {
	if m.v >= 2 {
		m.term.Print(fmt.Sprintf(msg, args...))
	}
}

// VV prints a message if verbosity >= 3, this is used for debug messages.
func (m *Message) VV(msg string, args ...interface{}) {
	if m.v >= 3 {
		m.term.Print(fmt.Sprintf(msg, args...))
	}
}

// ProgressPrinter prints messages and shows counters in the status line of a
// terminal.
type ProgressPrinter struct {
	*Message

	term     Terminal
	show     bool
	interval time.Duration
}

var _ progress.Printer = &ProgressPrinter{}

// NewProgressPrinter returns a printer for term. Counters are only shown if
// verbosity is at least 1.
func NewProgressPrinter(term Terminal, verbosity uint) *ProgressPrinter {
	return &ProgressPrinter{
		Message:  NewMessage(term, verbosity),
		term:     term,
		show:     verbosity >= 1,
		interval: CalculateProgressInterval(verbosity >= 1, term.CanUpdateStatus()),
	}
}

// CalculateProgressInterval returns the interval configured via
// GLACIER_RESTORE_PROGRESS_FPS or the default interval for status updates.
// Zero means that only the final state (and signals) is reported.
func CalculateProgressInterval(show bool, canUpdateStatus bool) time.Duration {
	interval := time.Second / 10
	fps, err := strconv.ParseFloat(os.Getenv("GLACIER_RESTORE_PROGRESS_FPS"), 64)
	if err == nil && fps > 0 {
		if fps > 60 {
			fps = 60
		}
		interval = time.Duration(float64(time.Second) / fps)
	} else if !canUpdateStatus {
		// print an update every minute into log files
		interval = time.Minute
	}
	if !show {
		interval = 0
	}
	return interval
}

// NewCounter returns a counter which shows processed items out of the
// counter's maximum, with an estimate of the remaining time.
func (p *ProgressPrinter) NewCounter(description string) *progress.Counter {
	if !p.show {
		return nil
	}

	return progress.NewCounter(p.interval, 0, func(value, max uint64, d time.Duration, final bool) {
		status := FormatCounter(value, max, d, description)
		if final {
			p.term.SetStatus(nil)
			p.term.Print(status)
			return
		}

		if p.term.CanUpdateStatus() {
			p.term.SetStatus([]string{status})
		} else {
			p.term.Print(status)
		}
	})
}

// FormatCounter formats the state of a counter as a single status line.
func FormatCounter(value, max uint64, d time.Duration, description string) string {
	if max == 0 {
		return fmt.Sprintf("[%s] %d %s", FormatDuration(d), value, description)
	}

	status := fmt.Sprintf("[%s] %s  %d / %d %s",
		FormatDuration(d), FormatPercent(value, max), value, max, description)
	if eta, ok := progress.ETA(value, max, d); ok {
		status += " ETA " + FormatDuration(eta)
	}
	return status
}
