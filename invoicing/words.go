package invoicing

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	smallNumbers = []string{
		"Zero", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
		"Seventeen", "Eighteen", "Nineteen",
	}
	tens = []string{
		"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
	}
	scales = []struct {
		value uint64
		name  string
	}{
		{1_000_000_000, "Billion"},
		{1_000_000, "Million"},
		{1_000, "Thousand"},
	}
)

// NumberToWords spells the integer part of d in English short scale. Cents
// are not spelled out.
func NumberToWords(d decimal.Decimal) string {
	n := d.Truncate(0).BigInt()
	switch n.Sign() {
	case 0:
		return smallNumbers[0]
	case -1:
		return "Negative " + strings.Join(spellBig(n.Neg(n)), " ")
	}
	return strings.Join(spellBig(n), " ")
}

var billion = big.NewInt(1_000_000_000)

// spellBig handles values beyond uint64 by grouping in billions.
func spellBig(n *big.Int) []string {
	if n.IsUint64() {
		return spell(n.Uint64())
	}
	q, r := new(big.Int).QuoRem(n, billion, new(big.Int))
	words := append(spellBig(q), "Billion")
	if r.Sign() != 0 {
		words = append(words, spell(r.Uint64())...)
	}
	return words
}

func spell(n uint64) []string {
	var words []string
	for _, s := range scales {
		if n >= s.value {
			words = append(words, spell(n/s.value)...)
			words = append(words, s.name)
			n %= s.value
		}
	}
	if n >= 100 {
		words = append(words, smallNumbers[n/100], "Hundred")
		n %= 100
	}
	switch {
	case n >= 20:
		words = append(words, tens[n/10])
		if n%10 != 0 {
			words = append(words, smallNumbers[n%10])
		}
	case n > 0:
		words = append(words, smallNumbers[n])
	}
	return words
}
