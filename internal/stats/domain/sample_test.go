package domain

import "testing"

func TestNewMemory(t *testing.T) {
	m := NewMemory(3, 10)
	if m.UsedBytes != 7 || m.FreeBytes != 3 || m.TotalBytes != 10 {
		t.Errorf("NewMemory(3, 10) = %+v", m)
	}
	if m := NewMemory(12, 10); m.UsedBytes != 0 {
		t.Errorf("free above total must not underflow, got %+v", m)
	}
}
