package queue

import "testing"

func TestMailboxKeepsOnlyLatest(t *testing.T) {
	t.Parallel()
	mb := NewMailbox[byte]()
	for _, v := range []byte("+-=+-") {
		mb.Overwrite(v)
	}
	got, ok := mb.TryRead()
	if !ok {
		t.Fatal("TryRead reported empty after writes")
	}
	if got != '-' {
		t.Fatalf("TryRead = %q, want %q", got, '-')
	}
	if mb.Overwritten() != 4 {
		t.Fatalf("Overwritten = %d, want 4", mb.Overwritten())
	}
}

func TestMailboxEmptyAfterRead(t *testing.T) {
	t.Parallel()
	mb := NewMailbox[int]()
	if _, ok := mb.TryRead(); ok {
		t.Fatal("fresh mailbox should be empty")
	}
	mb.Overwrite(7)
	if _, ok := mb.TryRead(); !ok {
		t.Fatal("expected a value after Overwrite")
	}
	if v, ok := mb.TryRead(); ok {
		t.Fatalf("second read returned %d, want empty", v)
	}
}

func TestMailboxPeekDoesNotConsume(t *testing.T) {
	t.Parallel()
	mb := NewMailbox[string]()
	mb.Overwrite("x")
	if v, ok := mb.Peek(); !ok || v != "x" {
		t.Fatalf("Peek = %q,%v", v, ok)
	}
	if v, ok := mb.TryRead(); !ok || v != "x" {
		t.Fatalf("TryRead after Peek = %q,%v", v, ok)
	}
	if mb.Writes() != 1 {
		t.Fatalf("Writes = %d, want 1", mb.Writes())
	}
}
