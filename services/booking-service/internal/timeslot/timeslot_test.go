package timeslot

import "testing"

func TestToMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"09:30", 570},
		{"12:00", 720},
		{"23:59", 1439},
		{"24:00", InvalidMinutes},
		{"9:30", InvalidMinutes},
		{"09:60", InvalidMinutes},
		{"0930", InvalidMinutes},
		{"ab:cd", InvalidMinutes},
		{"", InvalidMinutes},
	}
	for _, c := range cases {
		if got := ToMinutes(c.in); got != c.want {
			t.Errorf("ToMinutes(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatMinutesRoundTrip(t *testing.T) {
	for _, clock := range []string{"00:00", "09:05", "13:45", "23:59"} {
		if got := FormatMinutes(ToMinutes(clock)); got != clock {
			t.Errorf("round trip %q -> %q", clock, got)
		}
	}
	if got := FormatMinutes(-1); got != "" {
		t.Errorf("FormatMinutes(-1) = %q, want empty", got)
	}
	if got := FormatMinutes(24 * 60); got != "" {
		t.Errorf("FormatMinutes(1440) = %q, want empty", got)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"identical", 540, 600, 540, 600, true},
		{"contained", 540, 600, 550, 560, true},
		{"partial", 540, 600, 570, 660, true},
		{"adjacent after", 540, 600, 600, 660, false},
		{"adjacent before", 600, 660, 540, 600, false},
		{"disjoint", 540, 600, 720, 780, false},
	}
	for _, c := range cases {
		if got := Overlaps(c.aStart, c.aEnd, c.bStart, c.bEnd); got != c.want {
			t.Errorf("%s: Overlaps = %v, want %v", c.name, got, c.want)
		}
		// Symmetric under swapping the pair order.
		if got := Overlaps(c.bStart, c.bEnd, c.aStart, c.aEnd); got != c.want {
			t.Errorf("%s (swapped): Overlaps = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTile(t *testing.T) {
	slots := Tile(540, 720, 60) // 09:00-12:00, 60 min
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	for i, s := range slots {
		if s.End-s.Start != 60 {
			t.Errorf("slot %d length %d, want 60", i, s.End-s.Start)
		}
		if s.End > 720 {
			t.Errorf("slot %d exceeds window: end %d", i, s.End)
		}
		if i > 0 && s.Start <= slots[i-1].Start {
			t.Errorf("slots not ascending at %d", i)
		}
	}
	if slots[0].Start != 540 || slots[2].End != 720 {
		t.Errorf("unexpected boundaries: %+v", slots)
	}
}

func TestTilePartialSlotDropped(t *testing.T) {
	// 09:00-10:30 with 60-min duration: only 09:00-10:00 fits.
	slots := Tile(540, 630, 60)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if slots[0].Start != 540 || slots[0].End != 600 {
		t.Errorf("unexpected slot %+v", slots[0])
	}
}

func TestTileWindowShorterThanDuration(t *testing.T) {
	if slots := Tile(540, 570, 60); slots != nil {
		t.Errorf("expected no slots, got %+v", slots)
	}
	if slots := Tile(600, 540, 30); slots != nil {
		t.Errorf("inverted window: expected no slots, got %+v", slots)
	}
	if slots := Tile(540, 600, 0); slots != nil {
		t.Errorf("zero duration: expected no slots, got %+v", slots)
	}
}

func TestTileDurationDrivesBoundaries(t *testing.T) {
	if got := len(Tile(540, 720, 30)); got != 6 {
		t.Errorf("30-min tiling: got %d slots, want 6", got)
	}
	if got := len(Tile(540, 720, 45)); got != 4 {
		t.Errorf("45-min tiling: got %d slots, want 4", got)
	}
}
