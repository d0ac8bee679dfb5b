package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/marekhanzlik/s3-glacier-restore/internal/test"
)

func TestFilePattern(t *testing.T) {
	test.Equals(t, "", filePattern(""))
	test.Equals(t, "all", filePattern("all"))
	test.Equals(t, "*/dispatch.go:*", filePattern("dispatch.go"))
	test.Equals(t, "restore/submit.go:*", filePattern("restore/submit.go"))
	test.Equals(t, "*/submit.go:42", filePattern("submit.go:42"))
}

func TestFilterMatch(t *testing.T) {
	f, err := parseFilter("all, -dispatch.go", filePattern)
	test.OK(t, err)
	test.Equals(t, true, f.match("restore/submit.go:42"))
	test.Equals(t, false, f.match("dispatch/dispatch.go:120"))

	f, err = parseFilter("restore.*,+checkpoint.(*FileSet).Record", func(s string) string { return s })
	test.OK(t, err)
	test.Equals(t, true, f.match("restore.Submit"))
	test.Equals(t, true, f.match("checkpoint.(*FileSet).Record"))
	test.Equals(t, false, f.match("dispatch.(*Dispatcher).Run"))

	f, err = parseFilter("", filePattern)
	test.OK(t, err)
	test.Equals(t, 0, len(f))
	test.Equals(t, false, f.match("restore/submit.go:42"))

	f = filter{"*/dispatch.go:*": true, "Run": false}
	test.Equals(t, true, f.match("dispatch/dispatch.go:42"))
	test.Equals(t, false, f.match("Run"))
	test.Equals(t, false, f.match("retry/retry.go:10"))

	_, err = parseFilter("[", filePattern)
	test.Assert(t, err != nil, "expected error for invalid pattern")
}

func TestLogFilter(t *testing.T) {
	saved := opts
	defer func() { opts = saved }()

	var buf bytes.Buffer
	opts.isEnabled = true
	opts.logger = nil
	opts.stderr = &buf
	opts.files = filter{"*/debug_test.go:*": true}
	opts.funcs = nil

	Log("restore %v requested\n", "a.jpg")

	line := buf.String()
	test.Assert(t, strings.HasPrefix(line, "debug/debug_test.go:"), "unexpected position in %q", line)
	test.Assert(t, strings.HasSuffix(line, "\trestore a.jpg requested\n"), "unexpected message in %q", line)
}
