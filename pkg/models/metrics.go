package models

// DerivedMetrics is the full arbitrage record for one symbol at one
// contract expiry, built fresh each refresh cycle. The JSON field names
// are the column names the dashboard renders. Expense columns sit at the
// end of the record for presentation.
type DerivedMetrics struct {
	Symbol  string  `json:"SYMBOL"`
	LotSize int     `json:"LOT_SIZE"`
	CashBid float64 `json:"CASH_BID"`
	CashAsk float64 `json:"CASH_ASK"`
	FutBid  float64 `json:"FUT_BID"`
	FutAsk  float64 `json:"FUT_ASK"`

	CnnOpen  string `json:"CNN_OPEN"`
	CnnClose string `json:"CNN_CLOSE"`

	IntraOpen  float64 `json:"INTRA_OPEN"`
	IntraClose float64 `json:"INTRA_CLOSE"`
	DlvOpen    float64 `json:"DLV_OPEN"`
	DlvClose   float64 `json:"DLV_CLOSE"`

	RltReturnOpen  float64 `json:"RLT_RETURN_OPEN"`
	RltReturnClose float64 `json:"RLT_RETURN_CLOSE"`

	IntraRoundExp float64 `json:"INTRA_ROUND_EXP"`
	DlvRoundExp   float64 `json:"DLV_ROUND_EXP"`

	MParity float64 `json:"M_PARITY"`
	Parity  float64 `json:"PARITY"`

	CashIntraBuyExp  float64 `json:"CASH_INTRA_BUY_EXP"`
	CashIntraSellExp float64 `json:"CASH_INTRA_SELL_EXP"`
	CashDlvBuyExp    float64 `json:"CASH_DLV_BUY_EXP"`
	CashDlvSellExp   float64 `json:"CASH_DLV_SELL_EXP"`
	FutureBuyExp     float64 `json:"FUTURE_BUY_EXP"`
	FutureSellExp    float64 `json:"FUTURE_SELL_EXP"`
}
