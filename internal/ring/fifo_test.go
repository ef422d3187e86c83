package ring

import "testing"

func TestFifoByte_PutGet(t *testing.T) {
	f := NewFifoByte(4)
	if !f.Empty() {
		t.Fatal("new fifo should be empty")
	}
	if !f.Put(1) || !f.Put(2) {
		t.Fatal("put should succeed below capacity")
	}
	if b, ok := f.Get(); !ok || b != 1 {
		t.Fatalf("got %d, %v, want 1, true", b, ok)
	}
	if b, ok := f.Get(); !ok || b != 2 {
		t.Fatalf("got %d, %v, want 2, true", b, ok)
	}
	if _, ok := f.Get(); ok {
		t.Fatal("get on empty fifo should fail")
	}
}

func TestFifoByte_OverflowNonDestructive(t *testing.T) {
	f := NewFifoByte(2)
	if !f.Put(1) || !f.Put(2) {
		t.Fatal("expected to fill to capacity")
	}
	if f.Put(3) {
		t.Fatal("put on full fifo must report false")
	}
	if f.Count() != 2 {
		t.Fatalf("count = %d, want 2 (overflow must not mutate queue)", f.Count())
	}
}

func TestFifoByte_WrapAround(t *testing.T) {
	f := NewFifoByte(4)
	for round := 0; round < 3; round++ {
		for i := 0; i < 3; i++ {
			if !f.Put(byte(round*3 + i)) {
				t.Fatalf("round %d: put %d failed", round, i)
			}
		}
		for i := 0; i < 3; i++ {
			want := byte(round*3 + i)
			got, ok := f.Get()
			if !ok || got != want {
				t.Fatalf("round %d: got (%d,%v), want (%d,true)", round, got, ok, want)
			}
		}
	}
}

func TestFifoByte_PullPartial(t *testing.T) {
	f := NewFifoByte(8)
	f.PutSlice([]byte{1, 2, 3})
	out := make([]byte, 10)
	n := f.Pull(out)
	if n != 3 {
		t.Fatalf("pull returned %d, want 3", n)
	}
	if f.Count() != 0 {
		t.Fatal("fifo should be drained")
	}
}

func TestFifoByte_PeekDoesNotRemove(t *testing.T) {
	f := NewFifoByte(4)
	f.Put(42)
	b, ok := f.Peek()
	if !ok || b != 42 {
		t.Fatalf("peek = (%d,%v), want (42,true)", b, ok)
	}
	if f.Count() != 1 {
		t.Fatal("peek must not remove the element")
	}
}

func TestFifoByte_Flush(t *testing.T) {
	f := NewFifoByte(4)
	f.PutSlice([]byte{1, 2, 3})
	f.Flush()
	if !f.Empty() {
		t.Fatal("flush should empty the fifo")
	}
}
