package pingsync

import "testing"

func TestSanitizeTextField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "https://example.com/list.txt", "https://example.com/list.txt"},
		{"trim", "  https://example.com  ", "https://example.com"},
		{"tags", "<a href='x'>https://example.com</a>", "https://example.com"},
		{"script removed with content", "<script>alert(1)</script>https://example.com", "https://example.com"},
		{"style removed with content", "<STYLE type='text/css'>p{}</STYLE>ok", "ok"},
		{"newlines collapse", "a\n\nb\tc", "a b c"},
		{"control chars", "a\x00b\x1fc", "a b c"},
		{"query kept", "https://example.com/?a=1&b=2", "https://example.com/?a=1&b=2"},
		{"percent octets kept", "https://example.com/a%20b%2Fc", "https://example.com/a%20b%2Fc"},
		{"lone angle bracket kept", "https://example.com/?q=a<b", "https://example.com/?q=a<b"},
		{"invalid utf8", "https://example.com/\xff", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTextField(tt.in); got != tt.want {
				t.Errorf("SanitizeTextField(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
