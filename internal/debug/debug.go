// Package debug writes a detailed trace of what the program does. It is
// disabled unless DEBUG_LOG names a file, or DEBUG_FUNCS / DEBUG_FILES select
// functions or files whose messages are printed to stderr.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

var opts struct {
	isEnabled bool
	logger    *log.Logger
	funcs     filter
	files     filter
	stderr    io.Writer
}

// initialize before any init() function runs, so their messages are logged
var _ = initDebug()

func initDebug() bool {
	opts.stderr = os.Stderr

	if name := os.Getenv("DEBUG_LOG"); name != "" {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to open debug log file: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "debug log file %v\n", name)
		opts.logger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	}

	var err error
	opts.funcs, err = parseFilter(os.Getenv("DEBUG_FUNCS"), func(s string) string { return s })
	if err == nil {
		opts.files, err = parseFilter(os.Getenv("DEBUG_FILES"), filePattern)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(5)
	}

	opts.isEnabled = opts.logger != nil || len(opts.funcs) > 0 || len(opts.files) > 0
	if opts.isEnabled {
		fmt.Fprintf(os.Stderr, "debug enabled\n")
	}
	return opts.isEnabled
}

// filter maps glob patterns to whether matching messages are printed.
type filter map[string]bool

// parseFilter parses a comma separated list of patterns. A pattern prefixed
// with "-" disables matching messages, "all" enables everything else.
func parseFilter(list string, normalize func(string) string) (filter, error) {
	f := make(filter)
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		enable := !strings.HasPrefix(item, "-")
		pattern := normalize(strings.TrimLeft(item, "+-"))
		if pattern == "" {
			continue
		}

		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		f[pattern] = enable
	}
	return f, nil
}

// filePattern turns "restore.go" into "*/restore.go:*", so a plain file name
// matches all lines of that file in any package.
func filePattern(s string) string {
	if s == "" || s == "all" {
		return s
	}
	if !strings.Contains(s, "/") {
		s = "*/" + s
	}
	if !strings.Contains(s, ":") {
		s += ":*"
	}
	return s
}

func (f filter) match(key string) bool {
	if enable, ok := f[key]; ok {
		return enable
	}
	for pattern, enable := range f {
		if ok, _ := path.Match(pattern, key); ok {
			return enable
		}
	}
	return f["all"]
}

func goroutineNum() int {
	buf := make([]byte, 32)
	buf = buf[:runtime.Stack(buf, false)]

	var num int
	_, _ = fmt.Sscanf(string(buf), "goroutine %d ", &num)
	return num
}

// caller returns the function and the "dir/file:line" position of the
// function calling Log.
func caller() (fn, pos string) {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "", ""
	}

	pos = fmt.Sprintf("%s/%s:%d", filepath.Base(filepath.Dir(file)), filepath.Base(file), line)
	if f := runtime.FuncForPC(pc); f != nil {
		fn = path.Base(f.Name())
	}
	return fn, pos
}

// Log prints a message to the debug log (if debug is enabled).
func Log(f string, args ...interface{}) {
	if !opts.isEnabled {
		return
	}

	fn, pos := caller()
	msg := fmt.Sprintf(f, args...)
	line := fmt.Sprintf("%s\t%s\t%d\t%s", pos, fn, goroutineNum(), strings.TrimSuffix(msg, "\n"))

	if opts.logger != nil {
		opts.logger.Println(line)
	}
	if opts.files.match(pos) || opts.funcs.match(fn) {
		_, _ = fmt.Fprintln(opts.stderr, line)
	}
}
