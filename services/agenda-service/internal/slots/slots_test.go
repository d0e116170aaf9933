package slots

import (
	"testing"
	"time"
)

func TestAllMatchesClinicHours(t *testing.T) {
	want := []string{
		"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30",
		"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30", "18:00",
	}
	got := All()
	if len(got) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLunchGapAndOutsideHoursAreInvalid(t *testing.T) {
	for _, s := range []string{"13:00", "13:30", "07:30", "18:30", "09:15", "9:00", ""} {
		if IsValid(s) {
			t.Fatalf("%q must not be a bookable slot", s)
		}
	}
	if !IsValid("12:30") || !IsValid("18:00") {
		t.Fatal("expected window edges to be bookable")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	got := All()
	got[0] = "03:00"
	if IsValid("03:00") {
		t.Fatal("mutating All() leaked into the slot set")
	}
}

func TestGenerateSkipsShortWindows(t *testing.T) {
	got := Generate([]Window{{Start: 9 * time.Hour, End: 9*time.Hour + 20*time.Minute}}, 30*time.Minute, 15*time.Minute)
	if len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
	if Generate(WorkingWindows, 0, Step) != nil {
		t.Fatal("expected nil for zero duration")
	}
}

func TestOffset(t *testing.T) {
	d, ok := Offset("14:30")
	if !ok || d != 14*time.Hour+30*time.Minute {
		t.Fatalf("unexpected offset %s ok=%v", d, ok)
	}
	if _, ok := Offset("13:00"); ok {
		t.Fatal("expected lunch slot to have no offset")
	}
}
