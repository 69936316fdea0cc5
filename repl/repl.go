package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/bizagent/core"
)

// SendFunc submits one user message and returns the events of the turn.
type SendFunc func(ctx context.Context, text string) ([]core.Event, error)

// Loop reads user lines from In and prints final answers to Out.
type Loop struct {
	In   io.Reader
	Out  io.Writer
	Send SendFunc

	// Prompt is written before every read, e.g. "You: ".
	Prompt string
	// AnswerHeader is printed on its own line before each answer.
	AnswerHeader string
	// MaxLineBytes caps one input line; longer lines are reported and
	// skipped. Zero means DefaultMaxLineBytes.
	MaxLineBytes int
}

// DefaultMaxLineBytes is the input line cap used when Loop.MaxLineBytes is zero.
const DefaultMaxLineBytes = 1 << 20

// IsExit reports whether the line asks to leave the loop.
func IsExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	default:
		return false
	}
}

// SelectFinal returns the last event that is a final response carrying
// content. Earlier qualifying events are ignored.
func SelectFinal(events []core.Event) (core.Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].IsFinalResponse() && events[i].HasContent() {
			return events[i], true
		}
	}
	return core.Event{}, false
}

// Run reads lines until EOF or an exit keyword. Blank lines are skipped, as
// are lines longer than MaxLineBytes after a notice on Out.
// An error from Send ends the loop and is returned.
func (l *Loop) Run(ctx context.Context) error {
	limit := l.MaxLineBytes
	if limit <= 0 {
		limit = DefaultMaxLineBytes
	}

	in := bufio.NewReader(l.In)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if l.Prompt != "" {
			fmt.Fprint(l.Out, l.Prompt)
		}

		line, err := readLine(in, limit)
		if errors.Is(err, errLineTooLong) {
			fmt.Fprintf(l.Out, "Input too long (over %d bytes), ignored.\n", limit)
			continue
		}
		if errors.Is(err, io.EOF) {
			if line == "" {
				return nil
			}
		} else if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		if IsExit(line) {
			return nil
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if err := l.Turn(ctx, line); err != nil {
			return err
		}
	}
}

// Turn sends one message and prints the selected final answer, if any.
func (l *Loop) Turn(ctx context.Context, text string) error {
	events, err := l.Send(ctx, text)
	if err != nil {
		return err
	}

	final, ok := SelectFinal(events)
	if !ok {
		return nil
	}

	if l.AnswerHeader != "" {
		fmt.Fprintf(l.Out, "\n%s\n", l.AnswerHeader)
	}

	fmt.Fprintln(l.Out, final.Text())

	return nil
}

var errLineTooLong = errors.New("line too long")

// readLine returns the next line without its terminator. A line over limit
// bytes is consumed up to its newline and reported as errLineTooLong. The
// last line may end at EOF, in which case it is returned with io.EOF.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var buf []byte

	tooLong := false

	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > limit+2 { // room for "\r\n"
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if tooLong {
			if err != nil && !errors.Is(err, io.EOF) {
				return "", err
			}
			return "", errLineTooLong
		}

		line := strings.TrimSuffix(strings.TrimSuffix(string(buf), "\n"), "\r")
		if len(line) > limit {
			return "", errLineTooLong
		}

		return line, err
	}
}
