package util

import "github.com/sasha-s/go-deadlock"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Perror listens for errors reported from parallel worker goroutines (one
// per Recdecl during assembly emission) and buffers them for retrieval once
// the parallel job has completed.
type Perror struct {
	listen chan error // Channel for receiving error messages from worker threads.
	stop   chan error // Messages sent on this channel cause Perror to stop listening.
	errors []error    // Buffer of error messages.
	mx     deadlock.Mutex
}

// ----------------------
// ----- Constants ------
// ----------------------

// defaultBufferSize defines the fallback buffer size of the error array.
const defaultBufferSize = 16

// ---------------------
// ----- functions -----
// ---------------------

// NewPerror returns a pointer to a Perror with n pre-allocated slots for
// errors in the buffer.
func NewPerror(n int) *Perror {
	if n < 1 {
		n = defaultBufferSize
	}
	pe := Perror{
		listen: make(chan error),
		stop:   make(chan error),
		errors: make([]error, 0, n),
	}
	go pe.run()
	return &pe
}

// run listens for errors on the listen channel until a message arrives on
// stop.
func (pe *Perror) run() {
	defer close(pe.listen)
	for {
		select {
		case err := <-pe.listen:
			pe.mx.Lock()
			pe.errors = append(pe.errors, err)
			pe.mx.Unlock()
		case <-pe.stop:
			return
		}
	}
}

// Flush empties the buffered error messages. Must not be called after Stop.
func (pe *Perror) Flush() {
	pe.mx.Lock()
	defer pe.mx.Unlock()
	pe.errors = make([]error, 0, cap(pe.errors))
}

// Len returns the number of buffered errors.
func (pe *Perror) Len() int {
	pe.mx.Lock()
	defer pe.mx.Unlock()
	return len(pe.errors)
}

// Stop sends the stop signal to the error listener.
func (pe *Perror) Stop() {
	defer close(pe.stop)
	pe.stop <- nil
}

// Append sends err to the error listener. Nil errors are ignored.
func (pe *Perror) Append(err error) {
	if err != nil {
		pe.listen <- err
	}
}

// Errors returns a closed, buffered channel carrying every error reported
// since the last Flush, so a caller can drain it with a plain range.
func (pe *Perror) Errors() <-chan error {
	pe.mx.Lock()
	defer pe.mx.Unlock()
	c := make(chan error, len(pe.errors))
	for _, e1 := range pe.errors {
		c <- e1
	}
	close(c)
	return c
}
