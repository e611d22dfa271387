package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextMinimalBid(t *testing.T) {
	tests := []struct {
		accepted int64
		want     int64
	}{
		{0, 0},
		{1, 1},      // 1.1 -> 1
		{5, 6},      // 5.5 -> 6, half rounds away from zero
		{45, 50},    // 49.5 -> 50
		{100, 110},  // exact
		{101, 111},  // 111.1 -> 111
		{999, 1099}, // 1098.9 -> 1099
	}
	for _, tt := range tests {
		got := NextMinimalBid(NewMoney(tt.accepted, "USD"))
		assert.Equal(t, tt.want, got.Amount, "accepted %d", tt.accepted)
		assert.Equal(t, "USD", got.Currency)
	}
}

func TestMoneyComparisons(t *testing.T) {
	assert.True(t, NewMoney(100, "USD").GTE(NewMoney(100, "USD")))
	assert.True(t, NewMoney(101, "USD").GTE(NewMoney(100, "USD")))
	assert.False(t, NewMoney(99, "USD").GTE(NewMoney(100, "USD")))
	assert.True(t, NewMoney(0, "USD").IsZero())
	assert.False(t, NewMoney(100, "USD").SameCurrency(NewMoney(100, "EUR")))
}
