package ratelimit

import (
	"context"
	"io"
)

// Reader wraps an io.Reader with bandwidth limiting
type Reader struct {
	ctx     context.Context
	reader  io.Reader
	limiter *Limiter
}

// NewReader wraps reader so its reads draw from limiter. A nil limiter
// returns reader unchanged.
func NewReader(ctx context.Context, reader io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return reader
	}
	return &Reader{ctx: ctx, reader: reader, limiter: limiter}
}

// Read reserves len(p) bytes, capped at the burst size, before reading and
// gives back what the underlying read did not use
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if int64(len(p)) > r.limiter.burst {
		p = p[:r.limiter.burst]
	}
	if len(p) == 0 {
		return r.reader.Read(p)
	}

	if err := r.limiter.WaitN(r.ctx, int64(len(p))); err != nil {
		return 0, err
	}
	n, err := r.reader.Read(p)
	if n < len(p) {
		r.limiter.refund(int64(len(p) - n))
	}
	return n, err
}
