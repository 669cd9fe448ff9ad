package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 7, 7},
		{"25", 0, 25},
		{"-3", 1, -3},
		{"007", 99, 7},
		{"abc", 4, 4},
		{" 25", 4, 4},
		{"99999999999999999999", -1, -1},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestAtoiInRange(t *testing.T) {
	cases := []struct {
		s             string
		def, min, max int
		want          int
	}{
		{"", 20, 1, 100, 20},
		{"50", 20, 1, 100, 50},
		{"0", 20, 1, 100, 1},
		{"-5", 20, 1, 100, 1},
		{"500", 20, 1, 100, 100},
		{"junk", 20, 1, 100, 20},
	}
	for _, tc := range cases {
		if got := AtoiInRange(tc.s, tc.def, tc.min, tc.max); got != tc.want {
			t.Fatalf("AtoiInRange(%q, %d, %d, %d) = %d; want %d",
				tc.s, tc.def, tc.min, tc.max, got, tc.want)
		}
	}
}
