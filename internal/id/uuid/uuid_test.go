package uuid

import "testing"

func TestNewIDProducesUniqueValues(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	a, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	b, err := gen.NewID()
	if err != nil {
		t.Fatalf("NewID() repeat error = %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if len(a) != 36 {
		t.Fatalf("expected canonical uuid length, got %q", a)
	}
}
