package client

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/cnabio/credbroker/endpoint"
	"github.com/cnabio/credbroker/protocol"
)

// Outcome is how a single invocation of the client ended.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeFailed
	OutcomeConnectionError
	OutcomeUsage
)

// NotFoundMessage is printed when the store holds no matching entry.
const NotFoundMessage = "No value found for the specified service and account."

var exitCodes = map[Outcome]int{
	OutcomeFound:           0,
	OutcomeNotFound:        0,
	OutcomeFailed:          1,
	OutcomeConnectionError: 1,
	OutcomeUsage:           1,
}

// ExitCode is the process exit status for o.
func (o Outcome) ExitCode() int {
	if code, ok := exitCodes[o]; ok {
		return code
	}
	return 1
}

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeFailed:
		return "failed"
	case OutcomeConnectionError:
		return "connection-error"
	case OutcomeUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// Report is the rendered result of an invocation.
type Report struct {
	Outcome Outcome
	// Line is the single line to print. Stderr tells whether it belongs on
	// standard error.
	Line   string
	Stderr bool
}

// Print writes the report's line to the matching stream.
func (r Report) Print(stdout, stderr io.Writer) {
	w := stdout
	if r.Stderr {
		w = stderr
	}
	fmt.Fprintln(w, r.Line)
}

// Render turns the result of a lookup into a Report.
func Render(res protocol.Result, err error) Report {
	if err != nil {
		var ce *ConnectionError
		if errors.As(err, &ce) {
			return Report{Outcome: OutcomeConnectionError, Line: fmt.Sprintf("Error connecting to credential broker: %v", ce), Stderr: true}
		}
		return Report{Outcome: OutcomeFailed, Line: fmt.Sprintf("Failed to read from secret store: %v", err), Stderr: true}
	}
	switch res.Kind {
	case protocol.KindFound:
		return Report{Outcome: OutcomeFound, Line: res.Value}
	case protocol.KindNotFound:
		return Report{Outcome: OutcomeNotFound, Line: NotFoundMessage}
	default:
		return Report{Outcome: OutcomeFailed, Line: fmt.Sprintf("Failed to read from secret store: %s", res.Message), Stderr: true}
	}
}

// Invoke connects to ep, looks key up once and renders the answer. It
// returns only after the reply has been delivered.
func Invoke(ctx context.Context, ep endpoint.Endpoint, key protocol.LookupKey) Report {
	c, err := Dial(ep)
	if err != nil {
		return Render(protocol.Result{}, &ConnectionError{Err: err})
	}
	defer c.Close()

	done := make(chan Report, 1)
	c.LookupAsync(ctx, key, func(res protocol.Result, err error) {
		done <- Render(res, err)
	})
	return <-done
}
