package renderer

import (
	"bytes"
	"io"

	"github.com/etnz/positions"
	"github.com/shopspring/decimal"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// signed formats a Money with its sign, "-" for zero.
func signed(m positions.Money) string { return m.SignedString() }

// pct formats a percentage, empty when undefined.
func pct(p decimal.NullDecimal) string {
	if !p.Valid {
		return ""
	}
	return p.Decimal.StringFixed(2) + "%"
}
