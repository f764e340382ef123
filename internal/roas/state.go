package roas

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"roas/internal/metrics"
	"roas/internal/schema"
)

// State is where a pipeline evaluation ended.
type State int

const (
	AwaitingInputs State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingInputs:
		return "awaiting_inputs"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Messages shown to the user per outcome.
const (
	MsgAwaitingInputs = "Please upload all required CSV files to begin."
	MsgComputeFailed  = "Failed to compute report; check the input files and try again."
)

// Outcome is the result of one evaluation. Result is set only when State is
// Ready.
type Outcome struct {
	State   State
	Result  *Result
	Message string
	Err     error
}

// Evaluate runs the pipeline and maps its error to a state and user message.
// A panic inside the pipeline becomes a ComputationError; nothing partial is
// returned on failure.
func Evaluate(ctx context.Context, in Inputs, opts Options) (out Outcome) {
	opts = opts.withDefaults()
	defer func() {
		if p := recover(); p != nil {
			err := &ComputationError{Stage: "pipeline", Err: fmt.Errorf("panic: %v", p)}
			opts.Logger.Error("roas: pipeline panicked", zap.Any("panic", p))
			out = Outcome{State: Failed, Message: MsgComputeFailed, Err: err}
		}
		metrics.RecordRun(opts.Job, out.State.String())
	}()

	res, err := Run(ctx, in, opts)
	if err == nil {
		return Outcome{State: Ready, Result: res}
	}
	return outcomeFor(err)
}

func outcomeFor(err error) Outcome {
	var (
		missing *MissingInputError
		verr    *schema.ValidationError
	)
	switch {
	case errors.As(err, &missing):
		return Outcome{
			State:   AwaitingInputs,
			Message: MsgAwaitingInputs + " Missing: " + strings.Join(missing.Tables, ", ") + ".",
			Err:     err,
		}
	case errors.As(err, &verr):
		return Outcome{State: Failed, Message: verr.Error(), Err: err}
	default:
		return Outcome{State: Failed, Message: MsgComputeFailed, Err: err}
	}
}
