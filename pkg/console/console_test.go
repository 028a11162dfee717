package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// helper resets output and returns buffer and writer
func newTestWriter(t *testing.T, name string) (*Writer, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	SetColor(ColorNever)
	t.Cleanup(func() { SetColor(ColorAuto) })
	return ForName(name), buf
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLineFormat(t *testing.T) {
	w, buf := newTestWriter(t, "format_test")

	ts := time.Date(2024, 3, 9, 14, 5, 6, 0, time.Local)
	w.Line(ts, record.Info, "hello world")

	assert.Equal(t, "[2024-03-09 14:05:06] [INFO] [format_test]: hello world\n", buf.String())
}

func TestForNameIsMemoized(t *testing.T) {
	a := ForName("memo_test")
	b := ForName("memo_test")
	assert.Same(t, a, b)
	assert.Equal(t, "unknown", ForName("").Name())
}

func TestStyledLevelTag(t *testing.T) {
	_, buf := newTestWriter(t, "styled_test")
	SetColor(ColorAlways)

	ForName("styled_test").Line(time.Now(), record.Error, "boom")
	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "[styled_test]: boom")
}

func TestWriteErrorsAreSwallowed(t *testing.T) {
	w, _ := newTestWriter(t, "failing_test")
	SetOutput(failingWriter{})

	var got error
	SetErrorHandler(func(err error) { got = err })
	defer SetErrorHandler(nil)

	require.NotPanics(t, func() { w.Line(time.Now(), record.Warning, "lost") })
	require.Error(t, got)
	assert.Contains(t, got.Error(), "disk full")
}

func TestBlockAddsNewline(t *testing.T) {
	w, buf := newTestWriter(t, "block_test")
	w.Block("goroutine 1 [running]:")
	w.Block("")
	assert.Equal(t, "goroutine 1 [running]:\n", buf.String())
}

func TestDiagnostics(t *testing.T) {
	w, buf := newTestWriter(t, "diag_test")
	w.Warnf("store slow: %dms", 1200)
	w.Errorf("flush failed: %v", errors.New("timeout"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[WARNING] [diag_test]: store slow: 1200ms")
	assert.Contains(t, lines[1], "[ERROR] [diag_test]: flush failed: timeout")
}

func TestParseColorMode(t *testing.T) {
	for in, want := range map[string]ColorMode{"": ColorAuto, "AUTO": ColorAuto, "always": ColorAlways, "never": ColorNever} {
		got, err := ParseColorMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseColorMode("rainbow")
	assert.Error(t, err)
}
