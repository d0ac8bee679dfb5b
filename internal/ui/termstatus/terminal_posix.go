package termstatus

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	posixMoveCursorHome = "\r"
	posixMoveCursorUp   = "\x1b[1A"
	posixClearLine      = "\x1b[2K"
)

// clearCurrentLine removes all characters from the current line and resets the
// cursor position to the first column.
func clearCurrentLine(wr io.Writer) {
	// clear current line
	_, err := wr.Write([]byte(posixMoveCursorHome + posixClearLine))
	if err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		return
	}
}

// moveCursorUp moves the cursor to the line n lines above the current one.
func moveCursorUp(wr io.Writer, n int) {
	if n <= 0 {
		return
	}
	data := []byte(posixMoveCursorHome + strings.Repeat(posixMoveCursorUp, n))
	_, err := wr.Write(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
	}
}
