package shipping_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordmark/vitrine/internal/shipping"
)

func TestFlatRate_ChargesBelowThreshold(t *testing.T) {
	calc := shipping.NewFlatRateCalculator(500, 5000)

	cost, err := calc.Quote(context.Background(), nil, 4999)
	require.NoError(t, err)
	assert.Equal(t, int32(500), cost)
}

func TestFlatRate_FreeAtThreshold(t *testing.T) {
	calc := shipping.NewFlatRateCalculator(500, 5000)

	cost, err := calc.Quote(context.Background(), nil, 5000)
	require.NoError(t, err)
	assert.Equal(t, int32(0), cost)
}

func TestFlatRate_ZeroThresholdDisablesFreeShipping(t *testing.T) {
	calc := shipping.NewFlatRateCalculator(500, 0)

	cost, err := calc.Quote(context.Background(), nil, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int32(500), cost)
}
