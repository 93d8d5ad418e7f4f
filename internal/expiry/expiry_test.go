package expiry

import (
	"testing"
	"time"
)

func TestWindow(t *testing.T) {
	if got := Window(0); got != 7*24*time.Hour {
		t.Fatalf("default window got %v want %v", got, 7*24*time.Hour)
	}
	if got := Window(time.Hour); got != time.Hour {
		t.Fatalf("override window got %v want %v", got, time.Hour)
	}
}

func TestExpiresAt(t *testing.T) {
	issue := time.Date(2030, time.February, 25, 12, 0, 0, 500, time.UTC)
	want := time.Date(2030, time.March, 4, 12, 0, 0, 0, time.UTC)
	if got := ExpiresAt(issue, 0); !got.Equal(want) {
		t.Fatalf("ExpiresAt got %v want %v", got, want)
	}
}

func TestMaxAge(t *testing.T) {
	if got := MaxAge(0); got != 604800 {
		t.Fatalf("MaxAge got %d want %d", got, 604800)
	}
}

func TestParseWindow(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"168h", 168 * time.Hour, true},
		{" 30m ", 30 * time.Minute, true},
		{"", 0, false},
		{"0d", 0, false},
		{"-1h", 0, false},
		{"xd", 0, false},
		{"week", 0, false},
	}
	for _, c := range cases {
		got, err := ParseWindow(c.in)
		if (err == nil) != c.ok {
			t.Fatalf("ParseWindow(%q) ok=%v got err=%v", c.in, c.ok, err)
		}
		if c.ok && got != c.want {
			t.Fatalf("ParseWindow(%q) got %v want %v", c.in, got, c.want)
		}
	}
}
