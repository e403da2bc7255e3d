package domain

import "testing"

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		minor    int64
		currency string
		want     string
	}{
		{minor: 0, currency: "MXN", want: "$0.00 MXN"},
		{minor: 15000, currency: "mxn", want: "$150.00 MXN"},
		{minor: 150000005, currency: "MXN", want: "$1,500,000.05 MXN"},
		{minor: 99999, currency: "", want: "$999.99"},
		{minor: -123456, currency: "MXN", want: "-$1,234.56 MXN"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.minor, tt.currency); got != tt.want {
			t.Fatalf("FormatMoney(%d) = %q, want %q", tt.minor, got, tt.want)
		}
	}
}
