package security

import "testing"

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"Bearer":          "",
		"Bearer ":         "",
		"Basic abc":       "",
		"Bearerabc":       "",
		"Bearer abc":      "abc",
		"BEARER  abc  ":   "abc",
		"  bearer x.y.z ": "x.y.z",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
