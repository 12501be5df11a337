package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountApproxEqual(t *testing.T) {
	a := AmountFromFloat(1.1)
	b := AmountFromFloat(1.0).Add(AmountFromFloat(0.1))
	assert.True(t, a.ApproxEqual(b), "expected %v ≈ %v", a, b)
}

func TestAmountString(t *testing.T) {
	a := AmountFromFloat(50)
	assert.Equal(t, "50.000000", a.String())
}

func TestHashLeadingZeroBytes(t *testing.T) {
	var h Hash
	h[0] = '0'
	h[1] = '0'
	h[2] = 'x'
	assert.True(t, h.HasLeadingZeroBytes(2))
	assert.False(t, h.HasLeadingZeroBytes(3))
}
