package realtime

import "context"

// Emitter delivers outbound events to the client, in call order.
type Emitter interface {
	Emit(ctx context.Context, evt any) error
}

type EmitterFunc func(ctx context.Context, evt any) error

func (f EmitterFunc) Emit(ctx context.Context, evt any) error {
	return f(ctx, evt)
}

// emit stops at the first suspension point after ctx is done.
func emit(ctx context.Context, e Emitter, evt any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.Emit(ctx, evt)
}
