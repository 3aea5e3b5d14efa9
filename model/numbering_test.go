package model

import (
	"testing"
	"time"
)

func TestFormatInvoiceNumber(t *testing.T) {
	date := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      string
		cn      string
		counter int
		want    string
	}{
		{
			name:    "YYYY + CN + zero-padded counter (width 4)",
			in:      "RE-%YYYY%-%CN%-%04C%",
			cn:      "12345",
			counter: 7,
			want:    "RE-2025-12345-0007",
		},
		{
			name:    "YY + CN + non-padded counter (width given but no leading zero flag)",
			in:      "R-%YY%-%CN%-%3C%",
			cn:      "999",
			counter: 42,
			want:    "R-25-999-42",
		},
		{
			name:    "Only year and CN, no counter",
			in:      "INV-%YYYY%-%CN%",
			cn:      "ACME",
			counter: 1,
			want:    "INV-2025-ACME",
		},
		{
			name:    "Multiple counter placeholders",
			in:      "X-%02C%-%02C%",
			counter: 3,
			want:    "X-03-03",
		},
		{
			name:    "Mixed counter formats",
			in:      "%03C%/%C%",
			counter: 4,
			want:    "004/4",
		},
		{
			name:    "Empty customer number stays empty",
			in:      "INV-%YYYY%-%CN%-%02C%",
			counter: 3,
			want:    "INV-2025--03",
		},
		{
			name:    "Large padding width",
			in:      "%YYYY%-%06C%",
			counter: 1234,
			want:    "2025-001234",
		},
		{
			name:    "No known placeholders",
			in:      "PLAIN",
			cn:      "ANY",
			counter: 99,
			want:    "PLAIN",
		},
		{
			name:    "Edge: %0C% (zero flag without width) behaves like %C%",
			in:      "EDGE-%0C%",
			counter: 5,
			want:    "EDGE-5",
		},
		{
			name:    "default pattern",
			in:      "INV-%YYYY%-%04C%",
			counter: 12,
			want:    "INV-2025-0012",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := formatInvoiceNumber(tc.in, tc.cn, tc.counter, date)
			if got != tc.want {
				t.Fatalf("formatInvoiceNumber(%q, %q, %d) = %q, want %q",
					tc.in, tc.cn, tc.counter, got, tc.want)
			}
		})
	}
}

func BenchmarkFormatInvoiceNumber(b *testing.B) {
	in := "RE-%YYYY%-%CN%-%06C%"
	date := time.Now()
	for i := 0; i < b.N; i++ {
		_ = formatInvoiceNumber(in, "4711", 123, date)
	}
}
