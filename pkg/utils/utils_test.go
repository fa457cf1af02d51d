package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 102.0, Round2(102.0))
	assert.Equal(t, 101.99, Round2(101.994))
	assert.Equal(t, 102.0, Round2(101.996))
	// half-even: .005 rounds to the even cent
	assert.Equal(t, 101.98, Round2(101.985))
	assert.Equal(t, 102.0, Round2(101.995))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, int64(1), FloorDiv(200, 102))
	assert.Equal(t, int64(0), FloorDiv(50, 102))
	assert.Equal(t, int64(0), FloorDiv(100, 0))
}

func TestCeilDivInt(t *testing.T) {
	assert.Equal(t, int64(3), CeilDivInt(15, 5))
	assert.Equal(t, int64(4), CeilDivInt(16, 5))
	assert.Equal(t, int64(1), CeilDivInt(1, 5))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 3000))
	long := make([]byte, 0, 4000)
	for i := 0; i < 4000; i++ {
		long = append(long, 'a')
	}
	got := Truncate(string(long), 3000)
	assert.LessOrEqual(t, len([]rune(got)), 3000)
	assert.Contains(t, got, "truncated")
}
