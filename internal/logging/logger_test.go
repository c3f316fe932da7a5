package logging

import "testing"

func TestGetReturnsSameLogger(t *testing.T) {
	a := Get(CategoryTools)
	b := Get(CategoryTools)
	if a != b {
		t.Error("Get should return the same logger for a category")
	}
}

func TestSetLevel(t *testing.T) {
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) failed: %v", err)
	}
	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel(warn) failed: %v", err)
	}
	if err := SetLevel("not-a-level"); err == nil {
		t.Error("expected error for invalid level")
	}
}
