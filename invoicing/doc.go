// Package invoicing is the calculation and field-visibility engine behind
// the invoice editor, the stored invoice and the rendered PDF.
//
// All three consumers go through ComputeTotals, so the numbers on screen,
// in the database and on paper come from the same function. Amounts are
// exact decimals and only rounded by Money when they are displayed.
package invoicing
