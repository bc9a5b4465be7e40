package webhook

import "testing"

func TestHead(t *testing.T) {
	for _, c := range []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc"},
		{"aç", 2, "a"},
		{"aç", 3, "aç"},
		{"açb", 3, "aç"},
	} {
		if got := head([]byte(c.in), c.n); got != c.want {
			t.Errorf("head(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}
