// Package transport provides the byte transports between host and device.
package transport

import (
	"errors"
	"io"
	"sync"
)

// ErrClosed indicates a closed transport.
var ErrClosed = errors.New("transport closed")

// DefaultStagingSize is the default capacity of a Staging buffer.
const DefaultStagingSize = 1024

// Staging is a fixed capacity ring buffer between one producer, usually a
// goroutine blocked in a port read, and one consumer polling Read.
// Put waits while the buffer is full, so bytes are never dropped.
type Staging struct {
	lock   sync.Mutex
	cond   *sync.Cond
	buf    []byte
	head   int
	size   int
	err    error
	closed bool
}

// NewStaging creates a Staging buffer.
func NewStaging(capacity int) *Staging {
	if capacity <= 0 {
		capacity = DefaultStagingSize
	}
	s := &Staging{buf: make([]byte, capacity)}
	s.cond = sync.NewCond(&s.lock)
	return s
}

// Len returns the number of staged bytes.
func (s *Staging) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.size
}

// Cap returns the capacity.
func (s *Staging) Cap() int {
	return len(s.buf)
}

// Put appends bytes, waiting for room when full.
func (s *Staging) Put(p []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for len(p) > 0 {
		for s.size == len(s.buf) && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			return ErrClosed
		}
		tail := (s.head + s.size) % len(s.buf)
		end := len(s.buf)
		if tail < s.head {
			end = s.head
		}
		n := copy(s.buf[tail:end], p)
		s.size += n
		p = p[n:]
	}
	return nil
}

// Read implements io.Reader and never blocks. It returns 0, nil when
// nothing is staged, and the producer failure once the buffer is drained.
func (s *Staging) Read(p []byte) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.size == 0 {
		if s.err != nil {
			return 0, s.err
		}
		if s.closed {
			return 0, ErrClosed
		}
		return 0, nil
	}
	var n int
	for n < len(p) && s.size > 0 {
		end := s.head + s.size
		if end > len(s.buf) {
			end = len(s.buf)
		}
		c := copy(p[n:], s.buf[s.head:end])
		n += c
		s.head = (s.head + c) % len(s.buf)
		s.size -= c
	}
	s.cond.Broadcast()
	return n, nil
}

// Fail records the producer failure reported by Read after draining.
func (s *Staging) Fail(err error) {
	s.lock.Lock()
	if s.err == nil {
		s.err = err
	}
	s.lock.Unlock()
}

// Fill copies from r until r fails. A read returning 0, nil is retried,
// which lets ports with read timeouts keep the producer responsive.
func (s *Staging) Fill(r io.Reader, chunkSize int) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if perr := s.Put(buf[:n]); perr != nil {
				return perr
			}
		}
		if err != nil {
			s.Fail(err)
			return err
		}
	}
}

// Close wakes up a waiting producer. Staged bytes remain readable.
func (s *Staging) Close() error {
	s.lock.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.lock.Unlock()
	return nil
}
