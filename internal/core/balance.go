package core

import "sort"

// ComputeBalance folds a transaction set into a signed balance:
// +amount for SignPlus, -amount otherwise. Addition is commutative, so
// the result does not depend on ordering. An empty set yields zero.
func ComputeBalance(txs []Transaction) Money {
	var total int64
	for _, t := range txs {
		if t.Sign == SignPlus {
			total += t.Amount.Cents
		} else {
			total -= t.Amount.Cents
		}
	}
	return Money{Cents: total}
}

// DayOf truncates an RFC 3339 timestamp to its YYYY-MM-DD prefix.
// Day keys compare correctly as plain strings.
func DayOf(date string) string {
	if len(date) < 10 {
		return date
	}
	return date[:10]
}

// FilterByDateRange keeps transactions whose day falls inside the
// inclusive [from, to] range. Bounds are YYYY-MM-DD day keys; an empty
// bound leaves that side unbounded. The input slice is not modified.
func FilterByDateRange(txs []Transaction, from, to string) []Transaction {
	if from == "" && to == "" {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		day := DayOf(t.Date)
		if from != "" && day < from {
			continue
		}
		if to != "" && day > to {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortForDisplay orders transactions most-recent date first. Ties keep
// insertion order, which the store delivers as ascending ids.
func SortForDisplay(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date > txs[j].Date
	})
}

// TypeAmount is a signed total aggregated under one transaction type.
type TypeAmount struct {
	Type   string
	Sign   Sign
	Amount Money
}

// Summary is a per-type breakdown of a (possibly date-filtered)
// transaction set, feeding the chart layer.
type Summary struct {
	Total  Money
	ByType []TypeAmount
}

// Summarize aggregates signed totals per type label, in first-seen
// order, along with the overall total of the given set.
func Summarize(txs []Transaction) Summary {
	s := Summary{Total: ComputeBalance(txs)}
	index := make(map[string]int)
	for _, t := range txs {
		signed := t.Amount.Cents
		if t.Sign != SignPlus {
			signed = -signed
		}
		if i, ok := index[t.Type]; ok {
			s.ByType[i].Amount.Cents += signed
			continue
		}
		index[t.Type] = len(s.ByType)
		s.ByType = append(s.ByType, TypeAmount{Type: t.Type, Sign: t.Sign, Amount: Money{Cents: signed}})
	}
	return s
}
