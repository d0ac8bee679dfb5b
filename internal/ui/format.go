package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

var byteUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB"}

// FormatBytes formats c as a size with a binary unit.
func FormatBytes(c uint64) string {
	if c < 1024 {
		return fmt.Sprintf("%d B", c)
	}

	v := float64(c) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.3f %s", v, byteUnits[unit])
}

// FormatPercent formats part/total as a percentage, capped at 100%. It
// returns "" for a zero total.
func FormatPercent(part, total uint64) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%3.2f%%", min(100, 100*float64(part)/float64(total)))
}

// FormatDuration formats d as M:SS, or H:MM:SS once it reaches an hour.
// Fractions of a second are dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)

	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// runeWidth returns the number of terminal cells r occupies. ASCII control
// characters take none, East Asian wide runes take two.
func runeWidth(r rune) int {
	switch {
	case r < utf8.RuneSelf && !unicode.IsPrint(r):
		return 0
	case r < utf8.RuneSelf, r == utf8.RuneError:
		return 1
	}

	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// Quote returns line in Go syntax if it contains control characters or
// invalid UTF-8, which object keys are allowed to contain. Other lines are
// returned unchanged.
func Quote(line string) string {
	ok := strings.IndexFunc(line, func(r rune) bool {
		return r == unicode.ReplacementChar || !unicode.IsPrint(r)
	}) == -1
	if ok {
		return line
	}
	return strconv.Quote(line)
}

// Truncate cuts s so it fits into w terminal cells. A negative w yields "".
func Truncate(s string, w int) string {
	if len(s) <= w {
		// no rune is wider than its encoding is long
		return s
	}

	used := 0
	for i, r := range s {
		used += runeWidth(r)
		if used > w {
			return s[:i]
		}
	}
	return s
}
