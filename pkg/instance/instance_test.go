package instance

import "testing"

func TestGetIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("FRESHBASKET_INSTANCE_ID", "fb-2")
	if got := GetID(); got != "web.1" {
		t.Fatalf("expected web.1, got %q", got)
	}
}

func TestGetIDFallsBackToInstanceID(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("FRESHBASKET_INSTANCE_ID", "fb-2")
	if got := GetID(); got != "fb-2" {
		t.Fatalf("expected fb-2, got %q", got)
	}
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("FRESHBASKET_INSTANCE_ID", "")
	if GetID() == "" {
		t.Fatal("expected a non-empty id")
	}
}
