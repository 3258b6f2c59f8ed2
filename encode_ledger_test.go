package positions

import (
	"bytes"
	"strings"
	"testing"

	"github.com/etnz/positions/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLedger = `{"command":"declare","id":"AAPL","currency":"USD","assetClass":"equities"}
{"command":"declare","id":"DAX","currency":"EUR","assetClass":"cfd","margin":true,"valuePerPoint":1}
{"command":"split","security":"AAPL","date":"2025-06-10","from":1,"to":4}
{"command":"rate","date":"2025-01-01","from":"EUR","to":"USD","rate":1.25}

{"command":"accumulate","id":1,"security":"AAPL","date":"2025-01-10","units":10,"quotation":200,"transactionCost":1}
{"command":"reduce","id":2,"security":"AAPL","time":"2025-07-01T15:04:05Z","units":20,"quotation":60,"currencyExRate":0.9}
{"command":"accumulate","id":3,"security":"DAX","date":"2025-01-10","units":2,"quotation":18000}
{"command":"reduce","id":4,"security":"DAX","date":"2025-01-12","units":1,"quotation":18100,"connectedId":3}
`

func TestDecodeLedger(t *testing.T) {
	l, err := DecodeLedger(strings.NewReader(sampleLedger))
	require.NoError(t, err)

	aapl, ok := l.Security("AAPL")
	require.True(t, ok)
	assert.Equal(t, "USD", aapl.Currency)
	dax, _ := l.Security("DAX")
	assert.True(t, dax.IsMarginInstrument)

	history := l.History("AAPL")
	require.Len(t, history, 2)
	assert.Equal(t, KindReduce, history[1].Kind)
	assert.True(t, history[1].CurrencyExRate.Valid)
	assert.Equal(t, date.MustParse("2025-01-10"), history[0].Day())

	rate, ok := l.Rate(date.MustParse("2025-03-01"), "USD", "EUR")
	require.True(t, ok)
	assert.True(t, rate.Equal(dec(0.8)), "rate = %s", rate)
	_, ok = l.Rate(date.MustParse("2024-12-31"), "USD", "EUR")
	assert.False(t, ok)

	c, err := NewService(l, l, WithMainCurrency("EUR")).Calculate(aapl, history, nil)
	require.NoError(t, err)
	assert.True(t, c.Summary.Units.Equal(dec(20)), "units = %s", c.Summary.Units)
	assert.True(t, c.Summary.AdjustedCostBase.Equal(dec(1000.5)), "acb = %s", c.Summary.AdjustedCostBase)
}

func TestDecodeLedger_Errors(t *testing.T) {
	input := `{"command":"accumulate","id":1,"units":1,"quotation":1,"date":"2025-01-01"}
{"command":"declare","id":"A","currency":"EUR"}
{"command":"buy","id":2,"security":"A","date":"2025-01-01"}
{"command":"hypothetical-sell","id":3,"security":"A","date":"2025-01-01"}
not json
`
	_, err := DecodeLedger(strings.NewReader(input))
	require.Error(t, err)
	for _, want := range []string{"line 1:", "line 3:", "line 4:", "line 5:"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NotContains(t, err.Error(), "line 2:")
}

func TestEncodeLedger(t *testing.T) {
	l, err := DecodeLedger(strings.NewReader(sampleLedger))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeLedger(&buf, l))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, `{"command":"declare","id":"AAPL","currency":"USD","assetClass":"equities"}`, lines[0])
	assert.Equal(t, `{"command":"accumulate","id":1,"security":"AAPL","time":"2025-01-10T00:00:00Z","units":10,"quotation":200,"transactionCost":1}`, lines[4])

	again, err := DecodeLedger(&buf)
	require.NoError(t, err)
	assert.Equal(t, len(l.History("DAX")), len(again.History("DAX")))
	assert.Equal(t, l.Splits("AAPL"), again.Splits("AAPL"))
}

func TestLedger_Commit(t *testing.T) {
	l, err := DecodeLedger(strings.NewReader(sampleLedger))
	require.NoError(t, err)

	err = l.Commit(Change{OpAdd, Transaction{ID: 5, SecurityID: "AAPL", Kind: KindReduce, Time: on("2025-08-01"), Units: dec(21), Quotation: dec(60)}})
	assert.ErrorIs(t, err, ErrNegativeUnits)
	assert.Len(t, l.History("AAPL"), 2)

	err = l.Commit(Change{OpDelete, Transaction{ID: 3, SecurityID: "DAX"}})
	assert.ErrorIs(t, err, ErrOpenPositionReferenced)

	require.NoError(t, l.Commit(Change{OpDelete, Transaction{ID: 4, SecurityID: "DAX"}}))
	require.NoError(t, l.Commit(Change{OpDelete, Transaction{ID: 3, SecurityID: "DAX"}}))
	assert.Empty(t, l.History("DAX"))

	err = l.Commit(Change{OpAdd, Transaction{ID: 6, SecurityID: "NOPE"}})
	assert.Error(t, err)
}
