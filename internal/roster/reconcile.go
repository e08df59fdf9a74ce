package roster

// Reconcile merges a batch into a table's existing lines. Every existing line
// is demoted (IsNew=false); the batch is placed at the head in event order,
// each line fresh, unserved and marked new. Lines with the same item name are
// not merged here; merging happens in Aggregate.
func Reconcile(existing []OrderLine, items []Item, newID func() string) []OrderLine {
	out := make([]OrderLine, 0, len(items)+len(existing))
	for _, it := range items {
		out = append(out, OrderLine{
			ID:        newID(),
			ItemName:  it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			IsNew:     true,
		})
	}
	for _, l := range existing {
		l.IsNew = false
		out = append(out, l)
	}
	return out
}

// ReconcileMerging is the immediate-merge variant of Reconcile: an incoming
// item whose name matches an existing line (or an earlier item of the same
// batch) is folded into that line, and the merged line joins the new batch at
// the head. The merged line keeps the existing line's ID, takes the incoming
// price, and is unserved again.
func ReconcileMerging(existing []OrderLine, items []Item, newID func() string) []OrderLine {
	rest := make([]OrderLine, 0, len(existing))
	for _, l := range existing {
		l.IsNew = false
		rest = append(rest, l)
	}

	batch := make([]OrderLine, 0, len(items))
	inBatch := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := inBatch[it.Name]; ok {
			batch[i].Quantity += it.Quantity
			batch[i].UnitPrice = it.UnitPrice
			continue
		}

		line := OrderLine{
			ItemName:  it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			IsNew:     true,
		}
		if j := indexByName(rest, it.Name); j >= 0 {
			line.ID = rest[j].ID
			line.Quantity += rest[j].Quantity
			rest = append(rest[:j], rest[j+1:]...)
		} else {
			line.ID = newID()
		}
		inBatch[it.Name] = len(batch)
		batch = append(batch, line)
	}
	return append(batch, rest...)
}

func indexByName(lines []OrderLine, name string) int {
	for i, l := range lines {
		if l.ItemName == name {
			return i
		}
	}
	return -1
}
