package session

import "testing"

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "simple", header: `cart="c_123"`, want: "c_123"},
		{name: "whitespace", header: `  cart="c_123"  `, want: "c_123"},
		{name: "other keys", header: `express=?1, cart="c_9"`, want: "c_9"},
		{name: "params ignored", header: `cart="c_123";ttl=900`, want: "c_123"},
		{name: "empty header", header: "", wantErr: true},
		{name: "missing cart key", header: `express=?1`, wantErr: true},
		{name: "token not a string", header: `cart=42`, wantErr: true},
		{name: "empty token", header: `cart=""`, wantErr: true},
		{name: "inner list", header: `cart=("a" "b")`, wantErr: true},
		{name: "malformed", header: `cart="unterminated`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseHeader() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatHeader_RoundTrip(t *testing.T) {
	h, err := FormatHeader("c_123")
	if err != nil {
		t.Fatalf("FormatHeader() error = %v", err)
	}
	if h != `cart="c_123"` {
		t.Errorf("FormatHeader() = %q", h)
	}

	got, err := ParseHeader(h)
	if err != nil || got != "c_123" {
		t.Errorf("ParseHeader(FormatHeader()) = %q, %v", got, err)
	}
}
