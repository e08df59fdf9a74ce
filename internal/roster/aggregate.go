package roster

import "math"

// AggregatedLine is a name-deduplicated rollup of order lines.
type AggregatedLine struct {
	ItemName  string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
	LineTotal float64 `json:"lineTotal"`
}

// Bill is the billing view of a table.
type Bill struct {
	TableID string           `json:"tableId"`
	Lines   []AggregatedLine `json:"lines"`
	Total   float64          `json:"total"`
}

// Aggregate folds lines sharing an item name into one entry, in order of
// first appearance. UnitPrice is the first-seen price; LineTotal sums every
// folded line's own price times quantity.
func Aggregate(lines []OrderLine) []AggregatedLine {
	out := make([]AggregatedLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ItemName]; ok {
			out[i].Quantity += l.Quantity
			out[i].LineTotal += l.UnitPrice * float64(l.Quantity)
			continue
		}
		index[l.ItemName] = len(out)
		out = append(out, AggregatedLine{
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.UnitPrice * float64(l.Quantity),
		})
	}
	for i := range out {
		out[i].LineTotal = roundCents(out[i].LineTotal)
	}
	return out
}

// Total sums the aggregated lines, rounded to cents.
func Total(lines []AggregatedLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.LineTotal
	}
	return roundCents(sum)
}

// BillFor computes the bill of a table snapshot.
func BillFor(t Table) Bill {
	lines := Aggregate(t.Orders)
	return Bill{TableID: t.ID, Lines: lines, Total: Total(lines)}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
