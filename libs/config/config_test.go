package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8083")
	got, err := Port("TEST_PORT", "1")
	if err != nil || got != "8083" {
		t.Fatalf("expected 8083, got %q err=%v", got, err)
	}

	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "1"); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestDurationAndInt(t *testing.T) {
	t.Setenv("TEST_IDLE", "45m")
	if got := Duration("TEST_IDLE", time.Minute); got != 45*time.Minute {
		t.Fatalf("expected 45m, got %s", got)
	}
	t.Setenv("TEST_IDLE", "soon")
	if got := Duration("TEST_IDLE", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}

	t.Setenv("TEST_N", "-3")
	if got := Int("TEST_N", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("TEST_ORIGINS", " http://a.test, ,http://b.test ")
	got := List("TEST_ORIGINS", "")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected list: %#v", got)
	}
	if !Bool("TEST_MISSING_FLAG", true) {
		t.Fatal("expected fallback true")
	}
}
