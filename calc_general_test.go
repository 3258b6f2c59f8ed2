package positions

import (
	"testing"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneral_Closure(t *testing.T) {
	svc := NewService(nil, nil)
	c, err := svc.Calculate(equity, []Transaction{
		buy(1, "2025-01-10", 100, 10),
		sell(2, "2025-02-10", 100, 12),
	}, nil)
	require.NoError(t, err)

	assert.True(t, c.Summary.Units.IsZero(), "units = %s", c.Summary.Units)
	assert.True(t, c.Summary.AdjustedCostBase.IsZero(), "acb = %s", c.Summary.AdjustedCostBase)
	require.Len(t, c.Results, 2)
	assert.True(t, c.Results[1].GainLoss.Equal(EUR(200)), "gain = %v", c.Results[1].GainLoss)
	assert.True(t, c.Results[1].GainLossPercentage.Decimal.Equal(dec(20)))
	assert.False(t, c.Results[0].GainLossPercentage.Valid, "a purchase has no percentage")
}

func TestGeneral_ProportionalCostBase(t *testing.T) {
	testCases := []struct {
		name  string
		units float64
		price float64
		want  float64
	}{
		{"40% at a loss", 40, 3, 603},
		{"40% at a gain", 40, 30, 603},
		{"half", 50, 10, 502.5},
		{"all", 100, 10, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := buy(1, "2025-01-10", 100, 10)
			b.TransactionCost = dec(5)
			c, err := NewService(nil, nil).Calculate(equity, []Transaction{b, sell(2, "2025-02-10", tc.units, tc.price)}, nil)
			require.NoError(t, err)
			assert.True(t, c.Summary.AdjustedCostBase.Equal(dec(tc.want)), "acb = %s, want %v", c.Summary.AdjustedCostBase, tc.want)
		})
	}
}

func TestGeneral_SplitTransparency(t *testing.T) {
	splits := SplitTable{equity.ID: {{Date: date.MustParse("2024-06-10"), From: dec(1), To: dec(2)}}}
	txs := []Transaction{buy(1, "2024-01-10", 100, 10)}
	until := date.MustParse("2024-12-31")

	c, err := NewService(nil, splits).Calculate(equity, txs, &until)
	require.NoError(t, err)

	assert.True(t, c.Summary.Units.Equal(dec(200)), "units = %s", c.Summary.Units)
	assert.True(t, txs[0].Units.Equal(dec(100)), "stored units changed to %s", txs[0].Units)
	assert.True(t, c.Results[0].Units.Equal(dec(100)))

	// A sale before the split is counted in post-split units.
	c, err = NewService(nil, splits).Calculate(equity, append(txs, sell(2, "2024-03-01", 50, 12)), &until)
	require.NoError(t, err)
	assert.True(t, c.Summary.Units.Equal(dec(100)), "units = %s", c.Summary.Units)
	assert.True(t, c.Summary.AdjustedCostBase.Equal(dec(500)), "acb = %s", c.Summary.AdjustedCostBase)
	assert.True(t, c.Results[1].GainLoss.Equal(EUR(100)), "gain = %v", c.Results[1].GainLoss)
}

func TestGeneral_Dividend(t *testing.T) {
	d := dividend(2, "2025-03-01", 100, 0.5)
	d.TaxCost = dec(10)
	txs := []Transaction{buy(1, "2025-01-10", 100, 10), d}

	c, err := NewService(nil, nil).Calculate(equity, txs, nil)
	require.NoError(t, err)
	r := c.Results[1]
	assert.True(t, r.GainLoss.Equal(EUR(40)), "gain = %v", r.GainLoss)
	assert.True(t, r.GainLossPercentage.Decimal.Equal(dec(4)), "pct = %v", r.GainLossPercentage.Decimal)
	assert.True(t, c.Summary.Units.Equal(dec(100)))
	assert.True(t, c.Summary.AdjustedCostBase.Equal(dec(1000)))

	c, err = NewService(nil, nil, WithDividendTaxCostExcluded(true)).Calculate(equity, txs, nil)
	require.NoError(t, err)
	assert.True(t, c.Results[1].GainLoss.Equal(EUR(50)), "gain = %v", c.Results[1].GainLoss)
}

func TestGeneral_DividendWithoutUnitsHasNoPercentage(t *testing.T) {
	c, err := NewService(nil, nil).Calculate(equity, []Transaction{dividend(1, "2025-03-01", 10, 1)}, nil)
	require.NoError(t, err)
	assert.False(t, c.Results[0].GainLossPercentage.Valid)
	assert.True(t, c.Results[0].GainLoss.Equal(EUR(10)))
}

func TestGeneral_CurrencyDecomposition(t *testing.T) {
	usd := Security{ID: "AAPL", Currency: "USD", AssetClass: AssetClassEquities}
	b := Transaction{ID: 1, SecurityID: usd.ID, Kind: KindAccumulate, Time: on("2025-01-10"), Units: dec(10), Quotation: dec(100),
		CurrencyExRate: decimal.NewNullDecimal(dec(0.9))}
	s := Transaction{ID: 2, SecurityID: usd.ID, Kind: KindReduce, Time: on("2025-06-10"), Units: dec(10), Quotation: dec(110),
		CurrencyExRate: decimal.NewNullDecimal(dec(0.8))}

	c, err := NewService(nil, nil, WithMainCurrency("EUR")).Calculate(usd, []Transaction{b, s}, nil)
	require.NoError(t, err)
	r := c.Results[1]
	assert.True(t, r.GainLoss.Equal(USD(100)), "gain = %v", r.GainLoss)
	assert.True(t, r.GainLossMC.Equal(EUR(-20)), "gain MC = %v", r.GainLossMC)
	assert.True(t, r.CurrencyGainLossMC.Equal(EUR(-100)), "currency gain MC = %v", r.CurrencyGainLossMC)
	assert.True(t, c.Summary.AdjustedCostBaseMC.IsZero())
}

func TestGeneral_MissingRate(t *testing.T) {
	usd := Security{ID: "AAPL", Currency: "USD"}
	b := Transaction{ID: 1, SecurityID: usd.ID, Kind: KindAccumulate, Time: on("2025-01-10"), Units: dec(10), Quotation: dec(100)}

	_, err := NewService(nil, nil, WithMainCurrency("EUR")).Calculate(usd, []Transaction{b}, nil)
	assert.ErrorIs(t, err, ErrNoExchangeRate)

	l := NewLedger()
	l.AddRate(date.MustParse("2025-01-01"), "EUR", "USD", 1.25)
	c, err := NewService(l, nil, WithMainCurrency("EUR")).Calculate(usd, []Transaction{b}, nil)
	require.NoError(t, err)
	assert.True(t, c.Summary.AdjustedCostBaseMC.Equal(dec(800)), "acb MC = %s", c.Summary.AdjustedCostBaseMC)
}

func TestGeneral_AccruedInterestSimulation(t *testing.T) {
	bondTx := func(id int64, kind Kind, day string, units, price, accrued float64) Transaction {
		return Transaction{ID: id, SecurityID: bond.ID, Kind: kind, Time: on(day), Units: dec(units), Quotation: dec(price), AssetInvestmentValue1: dec(accrued)}
	}
	txs := []Transaction{
		bondTx(1, KindAccumulate, "2025-01-10", 1000, 101, 12),
		bondTx(2, KindReduce, "2025-06-10", 1000, 102, 5),
	}

	c, err := NewService(nil, nil).Calculate(bond, txs, nil)
	require.NoError(t, err)
	require.Len(t, c.Results, 4)

	kinds := []Kind{KindAccumulate, KindAccruedInterest, KindAccruedInterest, KindReduce}
	for i, k := range kinds {
		assert.Equal(t, k, c.Results[i].Kind, "result %d", i)
	}
	paid, received := c.Results[1], c.Results[2]
	assert.True(t, paid.Ephemeral)
	assert.Less(t, paid.TransactionID, int64(0))
	assert.Equal(t, int64(1), paid.ConnectedID)
	assert.True(t, paid.GainLoss.Equal(EUR(-12)), "paid = %v", paid.GainLoss)
	assert.True(t, received.GainLoss.Equal(EUR(5)), "received = %v", received.GainLoss)
	assert.Equal(t, int64(2), received.ConnectedID)
	// 1000 x 102% - 1000 x 101%
	assert.True(t, c.Results[3].GainLoss.Equal(EUR(10)), "gain = %v", c.Results[3].GainLoss)
	assert.True(t, c.Summary.GainLossSecurity.Equal(dec(3)), "total = %s", c.Summary.GainLossSecurity)

	t.Run("recorded accrued interest is not simulated again", func(t *testing.T) {
		recorded := Transaction{ID: 3, SecurityID: bond.ID, Kind: KindAccruedInterest, Time: on("2025-01-10"), Units: dec(1), Quotation: dec(-12), ConnectedID: 1}
		c, err := NewService(nil, nil).Calculate(bond, append(txs, recorded), nil)
		require.NoError(t, err)
		assert.Len(t, c.Results, 4)
		for _, r := range c.Results {
			if r.ConnectedID == 1 {
				assert.False(t, r.Ephemeral)
			}
		}
	})

	t.Run("disabled", func(t *testing.T) {
		c, err := NewService(nil, nil, WithAccruedInterestSimulation(false)).Calculate(bond, txs, nil)
		require.NoError(t, err)
		assert.Len(t, c.Results, 2)
	})
}

func TestGeneral_MarkToMarketDoesNotMutate(t *testing.T) {
	svc := NewService(nil, nil)
	c, err := svc.Calculate(equity, []Transaction{buy(1, "2025-01-10", 100, 10)}, nil)
	require.NoError(t, err)
	before := c.Snapshot()

	up, err := svc.MarkToMarket(c, dec(12), date.MustParse("2025-06-30"))
	require.NoError(t, err)
	down, err := svc.MarkToMarket(c, dec(8), date.MustParse("2025-06-30"))
	require.NoError(t, err)

	assert.True(t, up.UnrealizedGainLoss.Equal(EUR(200)), "up = %v", up.UnrealizedGainLoss)
	assert.True(t, down.UnrealizedGainLoss.Equal(EUR(-200)), "down = %v", down.UnrealizedGainLoss)
	assert.True(t, up.Value.Equal(EUR(1200)), "value = %v", up.Value)
	assert.True(t, up.Percentage.Decimal.Equal(dec(20)))

	after := c.Snapshot()
	assert.True(t, after.Units.Equal(before.Units))
	assert.True(t, after.AdjustedCostBase.Equal(before.AdjustedCostBase))
	assert.True(t, after.GainLoss.Equal(before.GainLoss))
	assert.Len(t, c.Results, 1)
}

func TestGeneral_MarkToMarketScalesCurrentQuote(t *testing.T) {
	splits := SplitTable{equity.ID: {{Date: date.MustParse("2024-06-10"), From: dec(1), To: dec(2)}}}
	until := date.MustParse("2024-05-01")
	svc := NewService(nil, splits)
	c, err := svc.Calculate(equity, []Transaction{buy(1, "2024-01-10", 100, 10)}, &until)
	require.NoError(t, err)
	assert.True(t, c.Summary.ClosePriceFactor.Equal(dec(2)))

	// 6 after the split is 12 before it.
	v, err := svc.MarkToMarket(c, dec(6), until)
	require.NoError(t, err)
	assert.True(t, v.UnrealizedGainLoss.Equal(EUR(200)), "unrealized = %v", v.UnrealizedGainLoss)
}
