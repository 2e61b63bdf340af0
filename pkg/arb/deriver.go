package arb

import (
	"fmt"
	"math"

	"github.com/arbdesk/arbdesk/pkg/models"
)

// Per-leg cost factors in basis points over 1e7. Buy legs price off the
// ask, sell legs off the bid; cash legs use the cash quote, futures legs
// the futures quote.
const (
	cashIntraBuyFactor  = 800
	cashIntraSellFactor = 3000
	cashDlvBuyFactor    = 12000
	cashDlvSellFactor   = 10500
	futuresBuyFactor    = 550
	futuresSellFactor   = 1600
)

const marginMultiplier = 1.2

// DeriveInput carries everything one derivation needs. Derive is a pure
// function of this input.
type DeriveInput struct {
	Symbol     string
	LotSize    int
	Equity     models.RawQuote
	Futures    models.RawQuote
	DaysLeft   int
	OpenFactor float64
}

// Derive computes the full arbitrage record for one symbol from its cash
// and futures quote snapshots. The equity quote must carry bidp1, askp1
// and ltp; the futures quote bidp1 and askp1. DaysLeft must be positive,
// otherwise the annualized returns are undefined.
func Derive(in DeriveInput) (models.DerivedMetrics, error) {
	if in.DaysLeft <= 0 {
		return models.DerivedMetrics{}, fmt.Errorf("days to expiry must be positive, got %d", in.DaysLeft)
	}

	openFactor := in.OpenFactor
	if math.IsNaN(openFactor) || math.IsInf(openFactor, 0) {
		openFactor = 1.0
	}

	cashBid, err := in.Equity.Float("bidp1")
	if err != nil {
		return models.DerivedMetrics{}, err
	}
	cashAsk, err := in.Equity.Float("askp1")
	if err != nil {
		return models.DerivedMetrics{}, err
	}
	ltp, err := in.Equity.Float("ltp")
	if err != nil {
		return models.DerivedMetrics{}, err
	}
	futBid, err := in.Futures.Float("bidp1")
	if err != nil {
		return models.DerivedMetrics{}, err
	}
	futAsk, err := in.Futures.Float("askp1")
	if err != nil {
		return models.DerivedMetrics{}, err
	}

	lot := float64(in.LotSize)

	cashIntraBuyExp := expense(cashAsk, cashIntraBuyFactor)
	cashIntraSellExp := expense(cashBid, cashIntraSellFactor)
	cashDlvBuyExp := expense(cashAsk, cashDlvBuyFactor)
	cashDlvSellExp := expense(cashBid, cashDlvSellFactor)
	futureBuyExp := expense(futAsk, futuresBuyFactor)
	futureSellExp := expense(futBid, futuresSellFactor)

	intraOpen := round2((-cashAsk + futBid - cashIntraBuyExp - futureSellExp) * lot)
	intraClose := round2((cashBid - futAsk - cashIntraSellExp - futureBuyExp) * lot)
	dlvOpen := round2((-cashAsk + futBid - cashDlvBuyExp - futureSellExp) * lot)
	dlvClose := round2((cashBid - futAsk - cashDlvSellExp - futureBuyExp) * lot)

	margin := ltp * marginMultiplier * lot
	daysLeft := float64(in.DaysLeft)

	return models.DerivedMetrics{
		Symbol:  in.Symbol,
		LotSize: in.LotSize,
		CashBid: cashBid,
		CashAsk: cashAsk,
		FutBid:  futBid,
		FutAsk:  futAsk,

		CnnOpen:  format2(futBid - cashAsk),
		CnnClose: format2(cashBid - futAsk),

		IntraOpen:  intraOpen,
		IntraClose: intraClose,
		DlvOpen:    dlvOpen,
		DlvClose:   dlvClose,

		RltReturnOpen:  round2(((dlvOpen * 100 / margin) / daysLeft) * 365),
		RltReturnClose: round2(((dlvClose * 100 / margin) / daysLeft) * 365),

		IntraRoundExp: round2(cashIntraBuyExp + cashIntraSellExp + futureBuyExp + futureSellExp),
		DlvRoundExp:   round2(cashDlvBuyExp + cashDlvSellExp + futureBuyExp + futureSellExp),

		MParity: round2(ltp*lot*openFactor/100 + dlvOpen*lot),
		Parity:  round2(ltp*openFactor/100 + dlvOpen),

		CashIntraBuyExp:  cashIntraBuyExp,
		CashIntraSellExp: cashIntraSellExp,
		CashDlvBuyExp:    cashDlvBuyExp,
		CashDlvSellExp:   cashDlvSellExp,
		FutureBuyExp:     futureBuyExp,
		FutureSellExp:    futureSellExp,
	}, nil
}

func expense(price, factor float64) float64 {
	return round2(price * factor / 1e7)
}

// round2 rounds half away from zero at two decimals. The same rule backs
// format2, so every figure in a record rounds the same way.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func format2(x float64) string {
	return fmt.Sprintf("%.2f", round2(x))
}
