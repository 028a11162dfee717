package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// TimestampFormat is the layout of the timestamp that opens every console line.
const TimestampFormat = "2006-01-02 15:04:05"

// ColorMode controls whether level tags are styled.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a color mode name. The empty string means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ColorAuto:
		return ColorAuto, nil
	case ColorAlways:
		return ColorAlways, nil
	case ColorNever:
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

// Writer renders lines for one logical name.
type Writer struct {
	name string
}

// writerHolder keeps the stored concrete type stable for atomic.Value.
type writerHolder struct {
	w io.Writer
}

type handlerHolder struct {
	fn func(error)
}

var (
	// writers caches one Writer per logical name.
	writers sync.Map // map[string]*Writer

	outputWriter atomic.Value // writerHolder
	errorHandler atomic.Value // handlerHolder
	colorMode    atomic.Value // ColorMode

	// writeMu keeps lines from different writers from interleaving.
	writeMu sync.Mutex
)

func init() {
	outputWriter.Store(writerHolder{w: os.Stdout})
	errorHandler.Store(handlerHolder{})
	colorMode.Store(ColorAuto)
}

// ForName returns (and memoizes) the writer for name, so repeated lookups never
// produce duplicate output for the same logical name.
func ForName(name string) *Writer {
	if name == "" {
		name = "unknown"
	}
	if w, ok := writers.Load(name); ok {
		return w.(*Writer)
	}
	actual, _ := writers.LoadOrStore(name, &Writer{name: name})
	return actual.(*Writer)
}

// SetOutput redirects every writer to w. A nil writer is ignored.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	outputWriter.Store(writerHolder{w: w})
}

// Output returns the current destination.
func Output() io.Writer {
	return outputWriter.Load().(writerHolder).w
}

// SetColor sets how level tags are styled.
func SetColor(mode ColorMode) {
	colorMode.Store(mode)
}

// SetErrorHandler installs fn to receive console write failures. Passing nil
// restores the default, which reports them on stderr.
func SetErrorHandler(fn func(error)) {
	errorHandler.Store(handlerHolder{fn: fn})
}

func handleError(err error) {
	if fn := errorHandler.Load().(handlerHolder).fn; fn != nil {
		fn(err)
		return
	}
	fmt.Fprintf(os.Stderr, "console write error: %v\n", err)
}

// Name returns the logical name rendered in every line.
func (w *Writer) Name() string {
	return w.name
}

// Line writes one formatted line. Write failures go to the error handler and are
// never returned.
func (w *Writer) Line(ts time.Time, level record.Level, msg string) {
	out := Output()
	line := FormatLine(ts, level, w.name, msg, colorEnabled(out))
	write(out, line)
}

// Block writes text verbatim, ensuring it ends with a newline.
func (w *Writer) Block(text string) {
	if text == "" {
		return
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	write(Output(), text)
}

// Warnf logs a diagnostic about the logger itself.
func (w *Writer) Warnf(format string, args ...any) {
	w.Line(time.Now(), record.Warning, fmt.Sprintf(format, args...))
}

// Errorf logs a diagnostic about the logger itself.
func (w *Writer) Errorf(format string, args ...any) {
	w.Line(time.Now(), record.Error, fmt.Sprintf(format, args...))
}

func write(out io.Writer, text string) {
	writeMu.Lock()
	defer writeMu.Unlock()
	if _, err := io.WriteString(out, text); err != nil {
		handleError(err)
	}
}

// FormatLine renders "[timestamp] [LEVEL] [name]: msg" followed by a newline.
func FormatLine(ts time.Time, level record.Level, name, msg string, styled bool) string {
	var b strings.Builder
	b.Grow(len(msg) + len(name) + 48)

	b.WriteByte('[')
	b.WriteString(ts.Local().Format(TimestampFormat))
	b.WriteString("] ")
	b.WriteString(levelTag(level, styled))
	b.WriteString(" [")
	b.WriteString(name)
	b.WriteString("]: ")
	b.WriteString(msg)
	b.WriteByte('\n')
	return b.String()
}

var (
	renderer = func() *lipgloss.Renderer {
		r := lipgloss.NewRenderer(io.Discard)
		r.SetColorProfile(termenv.ANSI256)
		return r
	}()

	levelStyles = map[record.Level]lipgloss.Style{
		record.Debug:    renderer.NewStyle().Foreground(lipgloss.Color("240")),
		record.Info:     renderer.NewStyle().Foreground(lipgloss.Color("33")),
		record.Warning:  renderer.NewStyle().Foreground(lipgloss.Color("214")),
		record.Error:    renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		record.Critical: renderer.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Bold(true),
	}
)

func levelTag(level record.Level, styled bool) string {
	tag := "[" + level.String() + "]"
	if !styled {
		return tag
	}
	if style, ok := levelStyles[level]; ok {
		return style.Render(tag)
	}
	return tag
}

func colorEnabled(out io.Writer) bool {
	switch colorMode.Load().(ColorMode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
