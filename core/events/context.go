package events

import "context"

type emitterKey struct{}

// WithEmitter attaches e to ctx so nested callees emit into it.
func WithEmitter(ctx context.Context, e Emitter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, emitterKey{}, e)
}

// FromContext returns the emitter attached to ctx, or fallback when none is
// attached. A nil fallback resolves to NoopEmitter.
func FromContext(ctx context.Context, fallback Emitter) Emitter {
	if ctx != nil {
		if e, ok := ctx.Value(emitterKey{}).(Emitter); ok && e != nil {
			return e
		}
	}
	if fallback == nil {
		return NoopEmitter{}
	}
	return fallback
}

// Flush replays every recorded event into dst and clears the recorder.
func (r *Recorder) Flush(dst Emitter) {
	if r == nil {
		return
	}
	r.mu.Lock()
	pending := r.events
	r.events = nil
	r.mu.Unlock()
	if dst == nil {
		return
	}
	for _, evt := range pending {
		dst.Emit(evt)
	}
}
