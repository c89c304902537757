package domain

import (
	"strings"
	"testing"
)

func TestNewIDFormat(t *testing.T) {
	id, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}
	if strings.Contains(id, "=") {
		t.Fatal("expected no padding")
	}
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d", len(id))
	}
	if id != strings.ToLower(id) {
		t.Fatal("expected lowercase id")
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if seen[id] {
			t.Fatalf("expected unique ids, got duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestLocalIDs(t *testing.T) {
	id, err := NewLocalID()
	if err != nil {
		t.Fatalf("new local id: %v", err)
	}
	if !IsLocalID(id) {
		t.Fatalf("expected %q to be a local id", id)
	}

	durable, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if IsLocalID(durable) {
		t.Fatalf("expected %q to be durable", durable)
	}
}
