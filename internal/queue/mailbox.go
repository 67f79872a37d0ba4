// Package queue implements the two inter-task channel disciplines: a
// single-slot overwrite mailbox and a bounded ordered byte channel.
package queue

import "sync/atomic"

// Mailbox holds at most one unread value. Writers always win: a write
// replaces whatever was not read yet. Neither side ever blocks.
type Mailbox[T any] struct {
	slot   atomic.Pointer[T]
	writes atomic.Uint64
	lost   atomic.Uint64 // writes that replaced an unread value
}

// NewMailbox returns an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{}
}

// Overwrite stores v, discarding any unread value.
func (m *Mailbox[T]) Overwrite(v T) {
	if old := m.slot.Swap(&v); old != nil {
		m.lost.Add(1)
	}
	m.writes.Add(1)
}

// TryRead consumes the current value. ok is false when nothing was written
// since the last read.
func (m *Mailbox[T]) TryRead() (v T, ok bool) {
	p := m.slot.Swap(nil)
	if p == nil {
		return v, false
	}
	return *p, true
}

// Peek returns the current value without consuming it.
func (m *Mailbox[T]) Peek() (v T, ok bool) {
	p := m.slot.Load()
	if p == nil {
		return v, false
	}
	return *p, true
}

// Writes returns the number of Overwrite calls.
func (m *Mailbox[T]) Writes() uint64 { return m.writes.Load() }

// Overwritten returns how many values were replaced before being read.
func (m *Mailbox[T]) Overwritten() uint64 { return m.lost.Load() }
