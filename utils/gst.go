package utils

import "github.com/shopspring/decimal"

var (
	decimalOneHundred = decimal.NewFromInt(100)
	decimalTwo        = decimal.NewFromInt(2)
)

// GSTBreakup holds an intra-state split. All fields are rounded to two decimals and
// Taxable + CGST + SGST == Total holds exactly.
type GSTBreakup struct {
	Taxable decimal.Decimal `json:"taxable"`
	Rate    decimal.Decimal `json:"rate"`
	GST     decimal.Decimal `json:"gst"`
	CGST    decimal.Decimal `json:"cgst"`
	SGST    decimal.Decimal `json:"sgst"`
	Total   decimal.Decimal `json:"total"`
}

// RoundMoney rounds half away from zero to two places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SplitInclusiveGST decomposes a tax-inclusive total: taxable = total / (1 + rate/100).
// An odd paisa left after halving goes to SGST.
func SplitInclusiveGST(total decimal.Decimal, rate decimal.Decimal) GSTBreakup {
	total = RoundMoney(total)
	if rate.LessThanOrEqual(decimal.Zero) {
		return GSTBreakup{Taxable: total, Rate: decimal.Zero, GST: decimal.Zero, CGST: decimal.Zero, SGST: decimal.Zero, Total: total}
	}
	taxable := RoundMoney(total.Mul(decimalOneHundred).Div(decimalOneHundred.Add(rate)))
	gst := total.Sub(taxable)
	cgst := RoundMoney(gst.Div(decimalTwo))
	return GSTBreakup{
		Taxable: taxable,
		Rate:    rate,
		GST:     gst,
		CGST:    cgst,
		SGST:    gst.Sub(cgst),
		Total:   total,
	}
}

// ApplyExclusiveGST adds tax on top of a taxable amount.
func ApplyExclusiveGST(taxable decimal.Decimal, rate decimal.Decimal) GSTBreakup {
	taxable = RoundMoney(taxable)
	if rate.LessThanOrEqual(decimal.Zero) {
		return GSTBreakup{Taxable: taxable, Rate: decimal.Zero, GST: decimal.Zero, CGST: decimal.Zero, SGST: decimal.Zero, Total: taxable}
	}
	gst := RoundMoney(taxable.Mul(rate).Div(decimalOneHundred))
	cgst := RoundMoney(gst.Div(decimalTwo))
	return GSTBreakup{
		Taxable: taxable,
		Rate:    rate,
		GST:     gst,
		CGST:    cgst,
		SGST:    gst.Sub(cgst),
		Total:   taxable.Add(gst),
	}
}

// LineAmount is quantity x rate rounded to money.
func LineAmount(quantity decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(quantity.Mul(rate))
}
