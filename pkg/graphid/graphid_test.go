package graphid

import "testing"

func TestNewRoundTrip(t *testing.T) {
	id, err := New(7, 12345)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if id.Label() != 7 {
		t.Errorf("Label() = %d, want 7", id.Label())
	}
	if id.Local() != 12345 {
		t.Errorf("Local() = %d, want 12345", id.Local())
	}
	if FromRaw(id.Raw()) != id {
		t.Errorf("FromRaw(Raw()) did not round-trip")
	}
	if id.String() != "7.12345" {
		t.Errorf("String() = %q, want %q", id.String(), "7.12345")
	}
}

func TestNewBoundary(t *testing.T) {
	if _, err := New(1, MaxLocal); err != nil {
		t.Errorf("New at MaxLocal should succeed, got %v", err)
	}
	if _, err := New(1, MaxLocal+1); err == nil {
		t.Errorf("New above MaxLocal should fail")
	}
}

func TestOrderingPreservesLabelThenLocal(t *testing.T) {
	a, _ := New(1, 5)
	b, _ := New(1, 6)
	c, _ := New(2, 0)
	if !(a < b && b < c) {
		t.Errorf("expected a < b < c, got a=%d b=%d c=%d", a, b, c)
	}
}
