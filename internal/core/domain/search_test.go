package domain

import "testing"

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultSearchLimit},
		{-3, DefaultSearchLimit},
		{1, 1},
		{100, 100},
		{101, MaxSearchLimit},
	}

	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Errorf("NormalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
