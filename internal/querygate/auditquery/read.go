package auditquery

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
)

// Result is one decoded line or the error that replaced it.
type Result struct {
	Event audit.Event
	Err   error
}

// ReadEvents streams NDJSON events from files, or from stdin when files is
// empty. Undecodable lines and unreadable files are reported as errors and
// reading continues. The channel closes when input is exhausted or ctx is
// done.
func ReadEvents(ctx context.Context, files []string, stdin io.Reader) <-chan Result {
	ch := make(chan Result, 100)
	go func() {
		defer close(ch)
		if len(files) == 0 {
			readFrom(ctx, stdin, "stdin", ch)
			return
		}
		for _, name := range files {
			f, err := os.Open(name)
			if err != nil {
				if !send(ctx, ch, Result{Err: fmt.Errorf("failed to open file %s: %w", name, err)}) {
					return
				}
				continue
			}
			ok := readFrom(ctx, f, name, ch)
			f.Close()
			if !ok {
				return
			}
		}
	}()
	return ch
}

func send(ctx context.Context, ch chan<- Result, r Result) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// readFrom returns false once ctx is done.
func readFrom(ctx context.Context, r io.Reader, source string, ch chan<- Result) bool {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		var e audit.Event
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			if !send(ctx, ch, Result{Err: fmt.Errorf("JSON parse error in %s line %d: %w", source, line, err)}) {
				return false
			}
			continue
		}
		if !send(ctx, ch, Result{Event: e}) {
			return false
		}
	}
	if err := scanner.Err(); err != nil {
		return send(ctx, ch, Result{Err: fmt.Errorf("scanner error in %s: %w", source, err)})
	}
	return true
}
