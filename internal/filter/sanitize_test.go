package filter

import "testing"

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"VER":      "VER",
		"44":       "44",
		"../etc":   ".._etc",
		"a b/c":    "a_b_c",
		"":         "_",
		"..":       "__",
		"DE VRIES": "DE_VRIES",
		"HÜL":      "H_L",
	}
	for in, want := range cases {
		if got := SafeName(in); got != want {
			t.Fatalf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}
