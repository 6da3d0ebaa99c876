package scanner

import (
	"math"
	"math/big"
	"testing"
	"time"
)

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "hello", "hello"},
		{"bool", true, true},
		{"int64", int64(42), int64(42)},
		{"int32 widens", int32(7), int64(7)},
		{"uint8 widens", uint8(255), int64(255)},
		{"float64", 3.14, 3.14},
		{"NaN becomes nil", math.NaN(), nil},
		{"positive infinity becomes nil", math.Inf(1), nil},
		{"bytes become string", []byte("blob"), "blob"},
		{"timestamp becomes rfc3339", ts, "2024-03-15T12:30:00Z"},
		{"hugeint becomes string", big.NewInt(1).Lsh(big.NewInt(1), 70), "1180591620717411303424"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.in)
			if got != tt.want {
				t.Errorf("normalizeValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeValue_Uint64Overflow(t *testing.T) {
	got := normalizeValue(uint64(math.MaxUint64))
	if got != "18446744073709551615" {
		t.Errorf("expected string form for overflowing uint64, got %v", got)
	}
}
