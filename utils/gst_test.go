package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitInclusiveGST(t *testing.T) {
	cases := []struct {
		name    string
		total   string
		rate    string
		taxable string
		cgst    string
		sgst    string
	}{
		{name: "eighteen percent", total: "118", rate: "18", taxable: "100", cgst: "9", sgst: "9"},
		{name: "five percent", total: "105", rate: "5", taxable: "100", cgst: "2.5", sgst: "2.5"},
		{name: "zero rate", total: "250.50", rate: "0", taxable: "250.5", cgst: "0", sgst: "0"},
		{name: "odd paisa to sgst", total: "100", rate: "18", taxable: "84.75", cgst: "7.63", sgst: "7.62"},
		{name: "twelve percent", total: "1000", rate: "12", taxable: "892.86", cgst: "53.57", sgst: "53.57"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitInclusiveGST(decimal.RequireFromString(tc.total), decimal.RequireFromString(tc.rate))
			if !got.Taxable.Equal(decimal.RequireFromString(tc.taxable)) {
				t.Fatalf("taxable = %s, want %s", got.Taxable, tc.taxable)
			}
			if !got.CGST.Equal(decimal.RequireFromString(tc.cgst)) {
				t.Fatalf("cgst = %s, want %s", got.CGST, tc.cgst)
			}
			if !got.SGST.Equal(decimal.RequireFromString(tc.sgst)) {
				t.Fatalf("sgst = %s, want %s", got.SGST, tc.sgst)
			}
		})
	}
}

func TestSplitInclusiveGSTSumsToTotal(t *testing.T) {
	rates := []int64{0, 3, 5, 12, 18, 28}
	for _, rate := range rates {
		for cents := int64(1); cents < 200000; cents += 731 {
			total := decimal.New(cents, -2)
			got := SplitInclusiveGST(total, decimal.NewFromInt(rate))
			sum := got.Taxable.Add(got.CGST).Add(got.SGST)
			if !sum.Equal(total) {
				t.Fatalf("rate %d total %s: taxable+cgst+sgst = %s", rate, total, sum)
			}
			if got.CGST.Sub(got.SGST).Abs().GreaterThan(decimal.New(1, -2)) {
				t.Fatalf("rate %d total %s: cgst %s and sgst %s differ by more than a paisa", rate, total, got.CGST, got.SGST)
			}
		}
	}
}

func TestApplyExclusiveGST(t *testing.T) {
	got := ApplyExclusiveGST(decimal.NewFromInt(1000), decimal.NewFromInt(18))
	if !got.Total.Equal(decimal.NewFromInt(1180)) {
		t.Fatalf("total = %s, want 1180", got.Total)
	}
	if !got.CGST.Equal(decimal.NewFromInt(90)) || !got.SGST.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("cgst/sgst = %s/%s, want 90/90", got.CGST, got.SGST)
	}

	back := SplitInclusiveGST(got.Total, got.Rate)
	if !back.Taxable.Equal(got.Taxable) {
		t.Fatalf("round trip taxable = %s, want %s", back.Taxable, got.Taxable)
	}
}

func TestLineAmount(t *testing.T) {
	got := LineAmount(decimal.RequireFromString("12.345"), decimal.RequireFromString("2"))
	if !got.Equal(decimal.RequireFromString("24.69")) {
		t.Fatalf("line amount = %s, want 24.69", got)
	}
}
