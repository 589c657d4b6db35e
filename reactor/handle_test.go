package reactor

import (
	"math/rand"
	"testing"
)

func TestHandle_TotalOrder(t *testing.T) {
	tests := []struct {
		a, b Handle
		want int
	}{
		{Handle{1, 1}, Handle{1, 1}, 0},
		{Handle{1, 9}, Handle{2, 0}, -1},
		{Handle{2, 0}, Handle{1, 9}, 1},
		{Handle{3, 1}, Handle{3, 2}, -1},
		{Handle{0, ^uint64(0)}, Handle{1, 0}, -1},
	}
	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%v.Compare(%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		a := Handle{uint64(rng.Intn(4)), uint64(rng.Intn(4))}
		b := Handle{uint64(rng.Intn(4)), uint64(rng.Intn(4))}
		n := 0
		if a.Less(b) {
			n++
		}
		if b.Less(a) {
			n++
		}
		if a == b {
			n++
		}
		if n != 1 {
			t.Fatalf("%v vs %v: %d relations hold", a, b, n)
		}
		lex := a.CommandID < b.CommandID || (a.CommandID == b.CommandID && a.ParamID < b.ParamID)
		if a.Less(b) != lex {
			t.Fatalf("%v.Less(%v) disagrees with lexicographic order", a, b)
		}
	}
}

func TestHandleOf_Deterministic(t *testing.T) {
	if HandleOf("cmd", "p") != HandleOf("cmd", "p") {
		t.Error("same strings gave different handles")
	}
	if HandleOf("cmd", "p") == HandleOf("cmd", "q") {
		t.Error("different params collided")
	}
	a, b := HandleOf("cmd", "p"), HandleOf("cmd", "q")
	if a.CommandID != b.CommandID {
		t.Error("command id depends on param")
	}
	if HandleOf("cmd", "p").String() == "" {
		t.Error("empty String()")
	}
}

func TestMessage_Accessors(t *testing.T) {
	m := NewMessage("ping", "7", WithPayload(42), WithField("k", "v"))
	if m.Handle() != HandleOf("ping", "7") {
		t.Error("handle not derived from command and param")
	}
	if m.Command() != "ping" || m.Param() != "7" || m.Payload() != 42 {
		t.Errorf("accessors = %q %q %v", m.Command(), m.Param(), m.Payload())
	}
	if v, ok := m.Field("k"); !ok || v != "v" {
		t.Errorf("Field(k) = %v, %v", v, ok)
	}
	f := m.Fields()
	f["k"] = "changed"
	if v, _ := m.Field("k"); v != "v" {
		t.Error("Fields() exposed the internal map")
	}

	custom := Handle{1, 2}
	if NewMessage("x", "y", WithHandle(custom)).Handle() != custom {
		t.Error("WithHandle ignored")
	}
	r := m.retarget(custom)
	if r.Handle() != custom || m.Handle() != HandleOf("ping", "7") || r.Payload() != 42 {
		t.Error("retarget changed the source message or lost data")
	}
}

func TestOverflow_Sink(t *testing.T) {
	var nilSink Overflow
	nilSink.add(1, newRecorder())
	if nilSink.Count() != 0 {
		t.Error("nil sink recorded an entry")
	}

	a, b := newRecorder(), newRecorder()
	o := Overflow{}
	o.add(1, a)
	o.add(1, a)
	o.add(1, b)
	o.add(2, a)
	if o.Count() != 3 {
		t.Errorf("Count = %d, want 3", o.Count())
	}
	if !o.Contains(1, b) || o.Contains(2, b) {
		t.Error("Contains mismatch")
	}
	if len(o.Handlers(1)) != 2 || len(o.Handlers(9)) != 0 {
		t.Error("Handlers mismatch")
	}
}
