package mongo

import (
	"context"
	"testing"
)

func TestContainsFoldEscapesInput(t *testing.T) {
	got := ContainsFold("a.b(c)*")
	if got["$regex"] != `a\.b\(c\)\*` {
		t.Fatalf("unexpected pattern %v", got["$regex"])
	}
	if got["$options"] != "i" {
		t.Fatalf("expected case-insensitive option, got %v", got["$options"])
	}
}

func TestConnectValidatesArguments(t *testing.T) {
	if _, _, err := Connect(context.Background(), "", "research", DefaultOptions()); err == nil {
		t.Fatal("expected error for empty uri")
	}
	if _, _, err := Connect(context.Background(), "mongodb://localhost:27017", " ", DefaultOptions()); err == nil {
		t.Fatal("expected error for empty db name")
	}
}
