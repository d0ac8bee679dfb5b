package ui

// Terminal receives the output of a command. Messages are written as whole
// lines, status lines are redrawn in place where the output supports it.
// termstatus.Terminal writes to the console, MockTerminal records everything
// for tests.
type Terminal interface {
	// Print writes a message line, a trailing newline is added if missing.
	Print(line string)
	// Error writes an error line to the error output.
	Error(line string)
	// SetStatus replaces the current status lines.
	SetStatus(lines []string)
	// CanUpdateStatus reports whether status lines are shown at all.
	CanUpdateStatus() bool
}
