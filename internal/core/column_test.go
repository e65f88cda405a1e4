package core

import (
	"errors"
	"testing"
)

func TestLetterToIndex(t *testing.T) {
	cases := map[string]int{
		"A":   1,
		"Z":   26,
		"AA":  27,
		"AZ":  52,
		"BA":  53,
		"ZZ":  702,
		"AAA": 703,
		"XFD": 16384,
	}
	for label, want := range cases {
		got, err := LetterToIndex(label)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", label, err)
		}
		if got != want {
			t.Fatalf("%s: got %d, want %d", label, got, want)
		}
	}
}

func TestLetterToIndexRejectsBadLabels(t *testing.T) {
	for _, label := range []string{"", "a", "A1", "-", "Ä"} {
		if _, err := LetterToIndex(label); !errors.Is(err, ErrInvalidColumnLabel) {
			t.Fatalf("%q: expected ErrInvalidColumnLabel, got %v", label, err)
		}
	}
}

func TestIndexToLetterRoundTrip(t *testing.T) {
	for n := 1; n <= 20000; n++ {
		label, err := IndexToLetter(n)
		if err != nil {
			t.Fatalf("%d: %v", n, err)
		}
		back, err := LetterToIndex(label)
		if err != nil || back != n {
			t.Fatalf("%d -> %q -> %d (%v)", n, label, back, err)
		}
	}
	if _, err := IndexToLetter(0); err == nil {
		t.Fatal("expected error for index 0")
	}
}

func TestCellA1(t *testing.T) {
	if got := (Cell{Row: 10, Col: 4}).A1(); got != "D10" {
		t.Fatalf("got %q", got)
	}
	if got := (Cell{Row: 3, Col: 28}).A1(); got != "AB3" {
		t.Fatalf("got %q", got)
	}
}
