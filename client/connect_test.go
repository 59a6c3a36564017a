package client

import (
	"testing"
	"time"
)

func TestReconnectDelay(t *testing.T) {
	maxDelay := 10 * time.Second

	tests := []struct {
		attempts int
		min      time.Duration
	}{
		{0, time.Second},
		{2, 4 * time.Second},
		{5, maxDelay},
		{100, maxDelay},
	}

	for _, test := range tests {
		d := reconnectDelay(test.attempts, maxDelay)
		if d < test.min || d > test.min+time.Second {
			t.Errorf("attempts %v: delay %v not in [%v, %v]", test.attempts, d,
				test.min, test.min+time.Second)
		}
	}
}
