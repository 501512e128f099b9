package content

import "testing"

func TestNewID_Monotonic(t *testing.T) {
	prev := ""
	for range 1000 {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		if len(id) != 26 {
			t.Fatalf("len(id) = %d, want 26", len(id))
		}
		if id <= prev {
			t.Fatalf("NewID() = %s, not after %s", id, prev)
		}
		prev = id
	}
}
