package order

import "testing"

func TestIDSourceMonotonic(t *testing.T) {
	var ids IDSource
	if ids.Last() != 0 {
		t.Fatalf("fresh source should report 0")
	}
	prev := uint64(0)
	for i := 0; i < 5; i++ {
		id := ids.Next()
		if id <= prev {
			t.Fatalf("id %d not greater than %d", id, prev)
		}
		prev = id
	}
	if ids.Last() != 5 {
		t.Fatalf("last = %d, want 5", ids.Last())
	}
}
