package ui

import (
	"testing"
	"time"

	rtest "github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

func TestFormatBytes(t *testing.T) {
	for _, test := range []struct {
		size uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{3 * 1024, "3.000 KiB"},
		{5<<20 + 1<<19, "5.500 MiB"},
		{1<<40 - 1<<36, "960.000 GiB"},
		{1 << 40, "1.000 TiB"},
		{3 << 50, "3.000 PiB"},
		{1 << 62, "4096.000 PiB"},
	} {
		rtest.Equals(t, test.want, FormatBytes(test.size))
	}
}

func TestFormatPercent(t *testing.T) {
	rtest.Equals(t, "", FormatPercent(3, 0))
	rtest.Equals(t, "0.00%", FormatPercent(0, 5))
	rtest.Equals(t, "42.86%", FormatPercent(3, 7))
	rtest.Equals(t, "100.00%", FormatPercent(12, 10))
}

func TestFormatDuration(t *testing.T) {
	for _, test := range []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0:00"},
		{900 * time.Millisecond, "0:00"},
		{61 * time.Second, "1:01"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour, "1:00:00"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "26:03:04"},
	} {
		rtest.Equals(t, test.want, FormatDuration(test.d))
	}
}

func TestQuote(t *testing.T) {
	for _, test := range []struct {
		in, want string
	}{
		{"photos/2018/a.jpg", "photos/2018/a.jpg"},
		{"fotky/léto 2018.jpg", "fotky/léto 2018.jpg"},
		{"photos/a\nb.jpg", `"photos/a\nb.jpg"`},
		{"\x1b[31mred.jpg", `"\x1b[31mred.jpg"`},
		{"bad\xffkey", `"bad\xffkey"`},
	} {
		rtest.Equals(t, test.want, Quote(test.in))
	}
}

func TestTruncate(t *testing.T) {
	for _, test := range []struct {
		in   string
		w    int
		want string
	}{
		{"", 10, ""},
		{"", -1, ""},
		{"[0:05] 12 objects", 80, "[0:05] 12 objects"},
		{"[0:05] 12 objects", 6, "[0:05]"},
		{"[0:05] 12 objects", 0, ""},
		{"[0:05] 12 objects", -3, ""},
		{"léto.jpg", 3, "lét"},
		{"写真/夏.jpg", 5, "写真/"},
		{"写真/夏.jpg", 6, "写真/"},
		{"写真/夏.jpg", 7, "写真/夏"},
		{"a\tb.jpg", 3, "a\tb."},
	} {
		rtest.Equals(t, test.want, Truncate(test.in, test.w))
	}
}
