package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuote_TwoTierScenario(t *testing.T) {
	q, err := NewQuote([]string{"A1", "D2"}, twoTier, DefaultFeePolicy)
	require.NoError(t, err)
	assert.EqualValues(t, 800, q.Subtotal)
	assert.EqualValues(t, 96, q.Fee)
	assert.EqualValues(t, 896, q.Total)
	assert.Equal(t, "convenience", q.FeeName)
	assert.Equal(t, []Line{{Seat: "A1", Price: 500}, {Seat: "D2", Price: 300}}, q.Lines)
}

func TestNewQuote_UndefinedSeat(t *testing.T) {
	_, err := NewQuote([]string{"G9"}, twoTier, DefaultFeePolicy)
	assert.ErrorIs(t, err, ErrPricingUndefined)
}

func TestFeePolicy_Rounding(t *testing.T) {
	p := FeePolicy{Name: "convenience", Percent: 12}
	assert.EqualValues(t, 36, p.Fee(300))  // 36.0
	assert.EqualValues(t, 1, p.Fee(5))     // 0.6
	assert.EqualValues(t, 0, p.Fee(4))     // 0.48
	assert.EqualValues(t, 0, FeePolicy{Percent: 0}.Fee(1000))
	assert.EqualValues(t, 0, p.Fee(0))

	gst := FeePolicy{Name: "gst", Percent: 18}
	assert.EqualValues(t, 144, gst.Fee(800))
}

func TestFeePolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultFeePolicy.Validate())
	assert.Error(t, FeePolicy{Percent: -1}.Validate())
	assert.Error(t, FeePolicy{Percent: 101}.Validate())
}
