package oracle

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestProbes(t *testing.T) {
	if got, want := ValueProbe("#fff"), "$foo: (key: #fff);"; got != want {
		t.Errorf("ValueProbe() = %q, want %q", got, want)
	}
	if got, want := KeyProbe("primary"), "$foo: (primary: 'foo');"; got != want {
		t.Errorf("KeyProbe() = %q, want %q", got, want)
	}
}

func TestProbeKind(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{ValueProbe("1px"), "value"},
		{KeyProbe("a-b"), "key"},
		{"a { color: red; }", "raw"},
	}
	for _, tt := range tests {
		if got := probeKind(tt.source); got != tt.want {
			t.Errorf("probeKind(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestTable(t *testing.T) {
	tbl := Table{}.AllowValues("#fff", "1px").AllowKeys("primary")

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"known value", AcceptsValue(tbl, "#fff"), true},
		{"unknown value", AcceptsValue(tbl, "a:b"), false},
		{"known key", AcceptsKey(tbl, "primary"), true},
		{"value is not a key", AcceptsKey(tbl, "#fff"), false},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestMemo_CachesVerdicts(t *testing.T) {
	var calls atomic.Int32
	inner := Func(func(source string) bool {
		calls.Add(1)
		return source == ValueProbe("ok")
	})
	memo := NewMemo(inner, nil)

	for i := 0; i < 3; i++ {
		if !AcceptsValue(memo, "ok") {
			t.Fatalf("expected ok to be accepted")
		}
		if AcceptsValue(memo, "bad:") {
			t.Fatalf("expected bad: to be rejected")
		}
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("inner oracle called %d times, want 2", got)
	}
	if memo.Len() != 2 {
		t.Errorf("Len() = %d, want 2", memo.Len())
	}

	memo.Reset()
	AcceptsValue(memo, "ok")
	if got := calls.Load(); got != 3 {
		t.Errorf("expected a fresh probe after Reset, calls = %d", got)
	}
}

func TestMemo_ConcurrentUse(t *testing.T) {
	memo := NewMemo(Table{}.AllowValues("a", "b"), nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			frag := []string{"a", "b", "c"}[i%3]
			want := frag != "c"
			if got := AcceptsValue(memo, frag); got != want {
				t.Errorf("AcceptsValue(%q) = %v, want %v", frag, got, want)
			}
		}(i)
	}
	wg.Wait()

	if memo.Len() != 3 {
		t.Errorf("Len() = %d, want 3", memo.Len())
	}
}
