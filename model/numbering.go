package model

import (
	"fmt"
	"regexp"
	"time"
)

var (
	customerNumberReplacer = regexp.MustCompile(`%CN%`)
	counterReplacer        = regexp.MustCompile(`%(0?)(\d*)C%`)
	year4Replacer          = regexp.MustCompile(`%YYYY%`)
	year2Replacer          = regexp.MustCompile(`%YY%`)
)

// formatInvoiceNumber expands an invoice number pattern:
//
//	%YYYY%  four digit year of date
//	%YY%    two digit year
//	%CN%    customer number
//	%C%     counter, %0nC% zero padded to width n
func formatInvoiceNumber(in string, customernumber string, counter int, date time.Time) string {
	in = customerNumberReplacer.ReplaceAllLiteralString(in, customernumber)

	year := date.Year()
	in = year4Replacer.ReplaceAllLiteralString(in, fmt.Sprintf("%04d", year))
	in = year2Replacer.ReplaceAllLiteralString(in, fmt.Sprintf("%02d", year%100))

	return counterReplacer.ReplaceAllStringFunc(in, func(m string) string {
		sub := counterReplacer.FindStringSubmatch(m)
		if sub[1] == "0" && sub[2] != "" {
			return fmt.Sprintf("%0"+sub[2]+"d", counter)
		}
		// width without leading zero → plain %d
		return fmt.Sprintf("%d", counter)
	})
}
