// Package transform defines the batch transformation contract shared by
// every source: an ordered batch in, one result per input out.
package transform

import (
	"context"
)

// Result is the outcome of transforming one input. Exactly one of
// Outputs or Err is meaningful; Outputs may be empty on success.
type Result[Out any] struct {
	Outputs []Out
	Err     error
}

// OK reports whether the input transformed without error.
func (r Result[Out]) OK() bool {
	return r.Err == nil
}

// Transformer converts an ordered batch of inputs. The i-th result
// belongs to the i-th input. A failing input does not stop the batch.
// Cancellation is checked between inputs; when ctx ends the call returns
// ctx.Err() and no results.
type Transformer[In, Out any] interface {
	Transform(ctx context.Context, inputs []In) ([]Result[Out], error)
}

// Func transforms a single input into zero or more outputs.
type Func[In, Out any] func(ctx context.Context, in In) ([]Out, error)

// Each lifts a per-item function into a Transformer.
func Each[In, Out any](fn func(ctx context.Context, in In) ([]Out, error)) Transformer[In, Out] {
	return each[In, Out](fn)
}

type each[In, Out any] Func[In, Out]

func (f each[In, Out]) Transform(ctx context.Context, inputs []In) ([]Result[Out], error) {
	results := make([]Result[Out], len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outs, err := f(ctx, in)
		if err != nil {
			results[i] = Result[Out]{Err: err}
			continue
		}
		results[i] = Result[Out]{Outputs: outs}
	}
	return results, nil
}

// Flatten concatenates successful outputs in input order.
func Flatten[Out any](results []Result[Out]) []Out {
	n := 0
	for _, r := range results {
		n += len(r.Outputs)
	}
	out := make([]Out, 0, n)
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Outputs...)
		}
	}
	return out
}

// Errors returns the per-item errors keyed by input index.
func Errors[Out any](results []Result[Out]) map[int]error {
	errs := make(map[int]error)
	for i, r := range results {
		if r.Err != nil {
			errs[i] = r.Err
		}
	}
	return errs
}

// One runs t over a single input.
func One[In, Out any](ctx context.Context, t Transformer[In, Out], in In) ([]Out, error) {
	results, err := t.Transform(ctx, []In{in})
	if err != nil {
		return nil, err
	}
	return results[0].Outputs, results[0].Err
}
