package action

import (
	"context"

	"dashboard-console/internal/flux"
)

// Types names the three phases of one asynchronous operation.
type Types struct {
	Request Type
	Success Type
	Failure Type
}

func typesFor(prefix string) Types {
	return Types{
		Request: Type(prefix + "_REQUEST"),
		Success: Type(prefix + "_SUCCESS"),
		Failure: Type(prefix + "_FAILURE"),
	}
}

type call func(ctx context.Context) (any, error)

// dispatchAsync dispatches the request phase, runs fn off the event loop and
// dispatches its outcome with params merged in. The returned future settles
// after the outcome has been applied to every store. Tracked operations are
// stamped with a generation so that stores can drop superseded responses.
//
// It must not be called from inside a dispatch callback.
func (c *Creator) dispatchAsync(ctx context.Context, fn call, types Types, params Params, tracked bool) *flux.Future {
	f := flux.NewFuture()
	if params == nil {
		params = Params{}
	}

	var gen uint64
	if tracked {
		gen = c.gens.next(types.Request)
	}

	if err := c.dispatch(context.WithoutCancel(ctx), Action{Type: types.Request, Params: params, Generation: gen}); err != nil {
		f.Reject(err)
		return f
	}

	// From here on exactly one outcome follows the request phase, even when
	// ctx has already ended.
	go func() {
		var resp any
		err := ctx.Err()
		if err == nil {
			resp, err = fn(ctx)
		}

		outcome := Action{Params: params, Generation: gen}
		if err != nil {
			outcome.Type = types.Failure
			outcome.Err = err
		} else {
			outcome.Type = types.Success
			outcome.Response = resp
		}

		if derr := c.dispatch(context.WithoutCancel(ctx), outcome); derr != nil {
			f.Reject(derr)
			return
		}
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(resp)
	}()

	return f
}

func (c *Creator) dispatch(ctx context.Context, a Action) error {
	return flux.Dispatch(ctx, c.queue, c.dispatcher, a)
}
