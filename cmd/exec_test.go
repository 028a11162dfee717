package cmd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nyc-design/neil-logger/pkg/logger"
	"github.com/nyc-design/neil-logger/pkg/storage"
)

func TestPipeLines(t *testing.T) {
	var got []string
	err := pipeLines(strings.NewReader("one\ntwo\n\nthree"), func(line string) {
		got = append(got, line)
	})
	if err != nil {
		t.Fatalf("pipeLines: %v", err)
	}
	want := []string{"one", "two", "", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestPipeLinesLongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	var got []string
	if err := pipeLines(strings.NewReader(long+"\n"), func(line string) { got = append(got, line) }); err != nil {
		t.Fatalf("pipeLines: %v", err)
	}
	if len(got) != 1 || len(got[0]) != len(long) {
		t.Fatalf("expected one line of %d bytes", len(long))
	}
}

func TestPipeLinesDrainsAfterOversizedLine(t *testing.T) {
	r := strings.NewReader("first\n" + strings.Repeat("x", maxLineSize+1) + "\nafter\n")
	var got []string
	err := pipeLines(r, func(line string) { got = append(got, line) })
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("err = %v, want bufio.ErrTooLong", err)
	}
	if !reflect.DeepEqual(got, []string{"first"}) {
		t.Errorf("lines = %q, want [first]", got)
	}
	if rest, _ := io.ReadAll(r); len(rest) != 0 {
		t.Errorf("%d bytes left unread", len(rest))
	}
}

func TestRunChildReturnsAfterOversizedLine(t *testing.T) {
	const name = "cmd-exec-long-line-test"
	closeLogger(t, name)
	l, err := logger.New(logger.Options{Name: name, Store: storage.NewMemory()})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runChild(ctx, l, []string{"sh", "-c",
			"head -c 3000000 /dev/zero | tr '\\0' x; echo; echo after; echo err >&2"})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, bufio.ErrTooLong) {
			t.Fatalf("runChild err = %v, want bufio.ErrTooLong", err)
		}
		if ctx.Err() != nil {
			t.Fatal("child was killed by the deadline instead of exiting")
		}
	case <-time.After(20 * time.Second):
		t.Fatal("runChild did not return")
	}

	// stderr is read independently of the stalled stdout stream
	if got := l.Buffered(); got != 1 {
		t.Errorf("buffered = %d, want 1", got)
	}
}
