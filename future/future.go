// Package future defines message futures used between the rpc server
// and the node event loop.
package future

import "github.com/ryjones/iroha/ledgerpb"

type Future interface {
	Error() error
}

// deferError lets a future respond with an error later.
type deferError struct {
	err       error
	errChan   chan error
	responded bool
}

// Init sets up the underlying error channel. Every future must call
// it before use.
func (d *deferError) Init() {
	d.errChan = make(chan error, 1)
}

// Respond delivers the error once; later calls have no effect.
func (d *deferError) Respond(err error) {
	if d.errChan == nil || d.responded {
		return
	}
	d.errChan <- err
	close(d.errChan)
	d.responded = true
}

// Error blocks for and returns the first responded error.
func (d *deferError) Error() error {
	if d.err != nil {
		return d.err
	}
	if d.errChan == nil {
		panic("waiting for response on nil channel")
	}
	d.err = <-d.errChan
	return d.err
}

// Batch asks the node to admit a client batch into the ordering
// fabric.
type Batch struct {
	deferError
	Batch *ledgerpb.Batch
}

// TxStatus asks the node for the terminal status of a transaction.
type TxStatus struct {
	deferError
	TxHash string
	Status string
}
