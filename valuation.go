package positions

import (
	"time"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// Result holds the figures computed for one applied transaction.
type Result struct {
	TransactionID      int64               `json:"id"`
	ConnectedID        int64               `json:"connectedId,omitempty"`
	Kind               Kind                `json:"kind"`
	Time               time.Time           `json:"time"`
	Ephemeral          bool                `json:"ephemeral,omitempty"`
	Units              decimal.Decimal     `json:"units"`
	CashAmount         Money               `json:"cashAmount"`
	GainLoss           Money               `json:"gainLoss"`
	GainLossMC         Money               `json:"gainLossMC"`
	CurrencyGainLossMC Money               `json:"currencyGainLossMC"`
	GainLossPercentage decimal.NullDecimal `json:"gainLossPercentage"`
}

// Valuation is the mark-to-market of an open position at a price.
type Valuation struct {
	SecurityID string          `json:"security"`
	Day        date.Date       `json:"date"`
	Price      decimal.Decimal `json:"price"` // Price at the valuation date's unit convention.
	Units      decimal.Decimal `json:"units"`
	Value      Money           `json:"value"`
	ValueMC    Money           `json:"valueMC"`

	UnrealizedGainLoss           Money               `json:"unrealizedGainLoss"`
	UnrealizedGainLossMC         Money               `json:"unrealizedGainLossMC"`
	UnrealizedCurrencyGainLossMC Money               `json:"unrealizedCurrencyGainLossMC"`
	Percentage                   decimal.NullDecimal `json:"percentage"`

	Lots []LotValuation `json:"lots,omitempty"`
}

// LotValuation is the unrealized gain of one margin lot.
type LotValuation struct {
	OpenID     int64               `json:"openId"`
	Units      decimal.Decimal     `json:"units"`
	GainLoss   Money               `json:"gainLoss"`
	GainLossMC Money               `json:"gainLossMC"`
	Percentage decimal.NullDecimal `json:"percentage"`
}

func (s *Service) newValuation(sec Security, on date.Date, price decimal.Decimal) Valuation {
	main := s.mainCurrencyFor(sec)
	return Valuation{
		SecurityID:                   sec.ID,
		Day:                          on,
		Price:                        price,
		Value:                        M(0, sec.Currency),
		ValueMC:                      M(0, main),
		UnrealizedGainLoss:           M(0, sec.Currency),
		UnrealizedGainLossMC:         M(0, main),
		UnrealizedCurrencyGainLossMC: M(0, main),
	}
}

// setUnrealized copies the figures of the hypothetical transaction last applied to s.
func (v *Valuation) setUnrealized(svc *Service, sec Security, s *PositionSummary) {
	main := svc.mainCurrencyFor(sec)
	v.UnrealizedGainLoss = svc.money(s.TransactionGainLoss, sec.Currency)
	v.UnrealizedGainLossMC = svc.money(s.TransactionGainLossMC, main)
	v.UnrealizedCurrencyGainLossMC = svc.money(s.TransactionCurrencyGainLossMC, main)
	v.Percentage = roundPercent(s.TransactionGainLossPercentage)
}

// roundPercent rounds a percentage to 4 digits.
func roundPercent(p decimal.NullDecimal) decimal.NullDecimal {
	if !p.Valid {
		return p
	}
	return decimal.NewNullDecimal(p.Decimal.Round(4))
}
