package tracking

import "testing"

func TestHistory_SeededAndNeverEmpty(t *testing.T) {
	h := NewHistory(10, 320)
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if h.Average() != 320 {
		t.Errorf("Average() = %v, want 320", h.Average())
	}

	h.Reset(100)
	if h.Len() != 1 || h.Average() != 100 {
		t.Errorf("after Reset: len=%d avg=%v", h.Len(), h.Average())
	}
}

func TestHistory_KeepsLastTen(t *testing.T) {
	h := NewHistory(10, 320)
	for i := 1; i <= 25; i++ {
		h.Push(float64(i))
	}

	if h.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", h.Len())
	}
	// 16..25
	if h.Average() != 20.5 {
		t.Errorf("Average() = %v, want 20.5", h.Average())
	}

	// Pushing 126 evicts 16: the sum grows by 110
	h.Push(126)
	if h.Average() != 31.5 {
		t.Errorf("Average() after eviction = %v, want 31.5", h.Average())
	}
}

func TestHistory_PartialFill(t *testing.T) {
	h := NewHistory(10, 320)
	h.Push(0)
	h.Push(640)

	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
	if h.Average() != 320 {
		t.Errorf("Average() = %v, want 320", h.Average())
	}
}
