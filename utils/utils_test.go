package utils

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateRandomStringLengthAndCharset(t *testing.T) {
	s := GenerateRandomString(16)
	if len(s) != 16 {
		t.Fatalf("len = %d, want 16", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(string(letterRunes), r) {
			t.Fatalf("unexpected rune %q in %q", r, s)
		}
	}

	d := GenerateRandomDigitString(8)
	if len(d) != 8 {
		t.Fatalf("len = %d, want 8", len(d))
	}
	for _, r := range d {
		if r < '0' || r > '9' {
			t.Fatalf("unexpected rune %q in %q", r, d)
		}
	}
}

// The generators run from every concurrent review create and booking-id
// allocation, so they must hold up under parallel callers (run with -race).
func TestGenerateRandomStringConcurrent(t *testing.T) {
	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if s := GenerateRandomString(16); len(s) != 16 {
					t.Errorf("len = %d, want 16", len(s))
					return
				}
				if d := GenerateRandomDigitString(8); len(d) != 8 {
					t.Errorf("len = %d, want 8", len(d))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestRoundMoney(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{10.005, 10.01},
		{10.004, 10.0},
		{3.3333333, 3.33},
		{0, 0},
	}
	for _, tc := range cases {
		if got := RoundMoney(tc.in); got != tc.want {
			t.Errorf("RoundMoney(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
