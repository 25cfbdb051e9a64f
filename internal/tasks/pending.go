package tasks

import "context"

// Pending is the outcome of a local mutation whose remote write may still be
// in flight.
type Pending struct {
	version uint64
	done    chan struct{}
	err     error
}

func newPending(version uint64) *Pending {
	return &Pending{version: version, done: make(chan struct{})}
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// Version is the stamp the mutation was issued with.
func (p *Pending) Version() uint64 { return p.version }

// Done is closed once the remote write finished, failed or was superseded.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err returns the write outcome, or nil while it is still in flight.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the write finished or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
