// Package serial is the output sink collaborator.
package serial

import (
	"bufio"
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Port transmits bytes.
type Port interface {
	PutChar(c byte) error
	PutString(s []byte) error
}

// Writer is a Port over any io.Writer. Output is buffered and flushed after
// every PutString and every newline written through PutChar.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
	n  uint64
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// PutChar transmits one byte.
func (p *Writer) PutChar(c byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.w.WriteByte(c); err != nil {
		return errors.Wrap(err, "serial put char")
	}
	p.n++
	if c == '\n' {
		return errors.Wrap(p.w.Flush(), "serial flush")
	}
	return nil
}

// PutString transmits s.
func (p *Writer) PutString(s []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.w.Write(s)
	p.n += uint64(n)
	if err != nil {
		return errors.Wrap(err, "serial put string")
	}
	return errors.Wrap(p.w.Flush(), "serial flush")
}

// Flush pushes out anything still buffered.
func (p *Writer) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Wrap(p.w.Flush(), "serial flush")
}

// Transmitted returns the number of bytes accepted so far.
func (p *Writer) Transmitted() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

// Buffer is a Port that keeps everything in memory.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// PutChar appends c.
func (b *Buffer) PutChar(c byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.WriteByte(c)
}

// PutString appends s.
func (b *Buffer) PutString(s []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.buf.Write(s)
	return err
}

// String returns everything written so far.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset discards everything written so far.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
