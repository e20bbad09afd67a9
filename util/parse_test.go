package util_test

import (
	"testing"
	"time"

	"github.com/downfa11-org/mapped-queue/util"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		fallback int
		want     int
	}{
		{"123", 0, 123},
		{"0", 99, 0},
		{"-5", 0, -5},
		{"abc", 42, 42},
		{"", 7, 7},
		{"   ", 8, 8},
	}

	for _, tt := range tests {
		got := util.ParseInt(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseInt(%q, %d) = %d; want %d", tt.input, tt.fallback, got, tt.want)
		}
	}
}

func TestParseInt64(t *testing.T) {
	tests := []struct {
		input    string
		fallback int64
		want     int64
	}{
		{"1073741824", 0, 1 << 30},
		{" 32 ", 0, 32},
		{"-1", 0, -1},
		{"1GB", 9, 9},
	}

	for _, tt := range tests {
		got := util.ParseInt64(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseInt64(%q, %d) = %d; want %d", tt.input, tt.fallback, got, tt.want)
		}
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"t", false, true},
		{"f", true, false},
		{"yes", false, false},
		{"", true, true},
		{"   ", false, false},
	}

	for _, tt := range tests {
		got := util.ParseBool(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseBool(%q, %v) = %v; want %v", tt.input, tt.fallback, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		fallback time.Duration
		want     time.Duration
	}{
		{"250ms", 0, 250 * time.Millisecond},
		{"2s", 0, 2 * time.Second},
		{"100", 0, 100 * time.Millisecond},
		{"soon", time.Second, time.Second},
		{"", time.Minute, time.Minute},
	}

	for _, tt := range tests {
		got := util.ParseDuration(tt.input, tt.fallback)
		if got != tt.want {
			t.Errorf("ParseDuration(%q, %v) = %v; want %v", tt.input, tt.fallback, got, tt.want)
		}
	}
}
