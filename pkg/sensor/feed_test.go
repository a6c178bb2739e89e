package sensor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const floatTolerance = 1e-9

func writeFeed(t *testing.T, lines string) *Feed {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensor_log.csv")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewFeed(path)
}

func rewriteFeed(t *testing.T, f *Feed, lines string) {
	t.Helper()
	if err := os.WriteFile(f.path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
}

func appendFeed(t *testing.T, f *Feed, lines string) {
	t.Helper()
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	if _, err := fh.WriteString(lines); err != nil {
		t.Fatal(err)
	}
}

func TestWindow_TrailingAverage(t *testing.T) {
	f := writeFeed(t, "timestamp,veml_autolux\nt1,100\nt2,200\nt3,300\nt4,400\n")

	avg, err := f.Window("veml_autolux", 2).Average()
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if math.Abs(avg-350) > floatTolerance {
		t.Errorf("avg: got %v, want 350 (last two rows)", avg)
	}
}

func TestWindow_PersistsAcrossReads(t *testing.T) {
	f := writeFeed(t, "timestamp,veml_autolux\nt1,100\nt2,200\n")
	w := f.Window("veml_autolux", 2)

	avg, err := w.Average()
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if math.Abs(avg-150) > floatTolerance {
		t.Errorf("first read: got %v, want 150", avg)
	}

	// Only the appended rows enter the window; the old ones roll out.
	appendFeed(t, f, "t3,300\nt4,400\n")
	avg, err = w.Average()
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if math.Abs(avg-350) > floatTolerance {
		t.Errorf("after append: got %v, want 350", avg)
	}

	// No new rows: the window is unchanged.
	avg, err = w.Average()
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if math.Abs(avg-350) > floatTolerance {
		t.Errorf("idle read: got %v, want 350", avg)
	}
}

func TestWindow_ResetsOnShrunkFeed(t *testing.T) {
	f := writeFeed(t, "timestamp,veml_autolux\nt1,100\nt2,200\nt3,300\n")
	w := f.Window("veml_autolux", 3)

	if avg, err := w.Average(); err != nil || math.Abs(avg-200) > floatTolerance {
		t.Fatalf("before rotation: avg=%v err=%v, want 200", avg, err)
	}

	// Log rotation: the feed restarts with fewer rows than consumed.
	rewriteFeed(t, f, "timestamp,veml_autolux\nt1,50\n")
	avg, err := w.Average()
	if err != nil {
		t.Fatalf("Average after rotation: %v", err)
	}
	if math.Abs(avg-50) > floatTolerance {
		t.Errorf("rotated feed: got %v, want 50", avg)
	}
}

func TestWindow_SkipsBadCells(t *testing.T) {
	f := writeFeed(t, "timestamp,veml_autolux\nt1,100\nt2,nan?\nt3,\nt4,300\n")

	avg, err := f.Window("veml_autolux", 10).Average()
	if err != nil {
		t.Fatalf("Average: %v", err)
	}
	if math.Abs(avg-200) > floatTolerance {
		t.Errorf("avg: got %v, want 200", avg)
	}
}

func TestWindow_ColumnMissing(t *testing.T) {
	f := writeFeed(t, "timestamp,lux\nt1,100\n")

	_, err := f.Window("veml_autolux", 3).Average()
	if !errors.Is(err, ErrColumnMissing) {
		t.Errorf("expected ErrColumnMissing, got %v", err)
	}
}

func TestWindow_HeaderOnly(t *testing.T) {
	f := writeFeed(t, "timestamp,veml_autolux\n")

	_, err := f.Window("veml_autolux", 3).Average()
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestWindow_MissingFile(t *testing.T) {
	f := NewFeed(filepath.Join(t.TempDir(), "nope.csv"))

	if _, err := f.Window("veml_autolux", 3).Average(); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLastColor(t *testing.T) {
	f := writeFeed(t, "timestamp,tcs_r,tcs_g,tcs_b\nt1,10,20,30\nt2,40,50,60\n")

	c, err := f.LastColor("tcs_r", "tcs_g", "tcs_b")
	if err != nil {
		t.Fatalf("LastColor: %v", err)
	}
	if c.R != 40 || c.G != 50 || c.B != 60 {
		t.Errorf("got %+v, want {40 50 60}", c)
	}
}

func TestLastColor_NonPositiveChannel(t *testing.T) {
	f := writeFeed(t, "timestamp,tcs_r,tcs_g,tcs_b\nt1,40,0,60\n")

	if _, err := f.LastColor("tcs_r", "tcs_g", "tcs_b"); !errors.Is(err, ErrNoData) {
		t.Errorf("zero green channel should yield ErrNoData, got %v", err)
	}
}

func TestLastColor_RaggedLastRow(t *testing.T) {
	f := writeFeed(t, "timestamp,tcs_r,tcs_g,tcs_b\nt1,40,50\n")

	if _, err := f.LastColor("tcs_r", "tcs_g", "tcs_b"); !errors.Is(err, ErrNoData) {
		t.Errorf("short row should yield ErrNoData, got %v", err)
	}
}
