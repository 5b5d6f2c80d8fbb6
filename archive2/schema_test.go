package archive2

import "testing"

func TestUnpackCachedReusesIdenticalBytes(t *testing.T) {
	c := newStructCache()
	calls := 0
	decode := func(raw []byte) int {
		calls++
		return len(raw)
	}

	raw := []byte{1, 2, 3, 4}
	v1 := unpackCached(c, "K", raw, decode)
	v2 := unpackCached(c, "K", raw, decode)

	if v1 != 4 || v2 != 4 {
		t.Fatalf("unpackCached returned %d, %d, want 4, 4", v1, v2)
	}
	if calls != 1 {
		t.Fatalf("decode called %d times, want 1 (second call should hit cache)", calls)
	}
}

func TestUnpackCachedRedecodesOnChange(t *testing.T) {
	c := newStructCache()
	calls := 0
	decode := func(raw []byte) int {
		calls++
		return len(raw)
	}

	unpackCached(c, "K", []byte{1, 2, 3}, decode)
	unpackCached(c, "K", []byte{1, 2, 3, 4}, decode)

	if calls != 2 {
		t.Fatalf("decode called %d times, want 2 (bytes changed)", calls)
	}
}

func TestUnpackCachedKeysAreIndependent(t *testing.T) {
	c := newStructCache()
	calls := 0
	decode := func(raw []byte) int {
		calls++
		return len(raw)
	}

	raw := []byte{1, 2, 3}
	unpackCached(c, "A", raw, decode)
	unpackCached(c, "B", raw, decode)

	if calls != 2 {
		t.Fatalf("decode called %d times, want 2 (different cache keys must not share state)", calls)
	}
}
