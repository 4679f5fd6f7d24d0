package cart

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id, product string, qty int, price string) Line {
	return Line{LineID: id, ProductID: product, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestEmptyCart(t *testing.T) {
	t.Parallel()

	c := Empty()
	assert.NotNil(t, c.Items)
	assert.True(t, c.TotalAmount.IsZero())
	assert.True(t, c.IsEmpty())
	require.NoError(t, c.Validate())

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"totalAmount":"0"}`, string(raw))
}

func TestRecomputeIsExact(t *testing.T) {
	t.Parallel()

	c := Cart{Items: []Line{line("a", "1", 3, "0.1"), line("b", "2", 7, "19.99")}}
	c.Recompute()

	assert.True(t, c.Items[0].LineTotal.Equal(decimal.RequireFromString("0.3")), "got %s", c.Items[0].LineTotal)
	assert.True(t, c.TotalAmount.Equal(decimal.RequireFromString("140.23")), "got %s", c.TotalAmount)
	require.NoError(t, c.Validate())
}

func TestRecomputeManySmallIncrementsDoesNotDrift(t *testing.T) {
	t.Parallel()

	c := Cart{Items: []Line{line("a", "1", 0, "0.1")}}
	for i := 0; i < 1000; i++ {
		c.Items[0].Quantity++
		c.Recompute()
	}
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(100)), "got %s", c.TotalAmount)
}

func TestLookupsAndCounts(t *testing.T) {
	t.Parallel()

	c := Cart{Items: []Line{line("a", "1", 2, "50"), line("b", "2", 1, "30")}}
	c.Recompute()

	got, ok := c.LineByProduct("2")
	require.True(t, ok)
	assert.Equal(t, "b", got.LineID)

	got, ok = c.LineByID("a")
	require.True(t, ok)
	assert.Equal(t, "1", got.ProductID)

	_, ok = c.LineByID("missing")
	assert.False(t, ok)
	_, ok = c.LineByProduct("missing")
	assert.False(t, ok)

	assert.Equal(t, 3, c.TotalQuantity())
	assert.Equal(t, 2, c.LineCount())
}

func TestCloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	c := Cart{Items: []Line{line("a", "1", 2, "50")}}
	c.Recompute()
	clone := c.Clone()
	clone.Items[0].Quantity = 9

	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestValidateRejectsBrokenInvariants(t *testing.T) {
	t.Parallel()

	cases := map[string]Cart{
		"duplicate product": {Items: []Line{line("a", "1", 1, "5"), line("b", "1", 1, "5")}},
		"duplicate line id": {Items: []Line{line("a", "1", 1, "5"), line("a", "2", 1, "5")}},
		"zero quantity":     {Items: []Line{line("a", "1", 0, "5")}},
		"negative price":    {Items: []Line{line("a", "1", 1, "-5")}},
		"missing product":   {Items: []Line{line("a", "", 1, "5")}},
		"missing line id":   {Items: []Line{line("", "1", 1, "5")}},
	}
	for name, c := range cases {
		c.Recompute()
		assert.Error(t, c.Validate(), name)
	}

	stale := Cart{Items: []Line{line("a", "1", 2, "5")}}
	stale.Recompute()
	stale.TotalAmount = decimal.NewFromInt(11)
	assert.Error(t, stale.Validate(), "stale total")
}

func TestDecodesNumericPrices(t *testing.T) {
	t.Parallel()

	var c Cart
	require.NoError(t, json.Unmarshal([]byte(`{"items":[{"id":"a","productId":"1","quantity":2,"unitPrice":50,"lineTotal":100}],"totalAmount":100}`), &c))
	require.NoError(t, c.Validate())
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(100)))
}
