package valuation

import (
	"cmp"
	"slices"
)

// kindRank puts entries ahead of everything else sharing a timestamp, so stock
// received on a day is available to exits of the same day.
func kindRank(k Kind) int {
	if k == KindEntry {
		return 0
	}
	return 1
}

// compareProcessing is the ascending processing order: timestamp, entries first, batch position.
func compareProcessing(a, b Row) int {
	if c := cmp.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(kindRank(a.Kind), kindRank(b.Kind)); c != 0 {
		return c
	}
	return cmp.Compare(a.position, b.position)
}

// compareDisplay is most recent first. Only the timestamp is reversed: within one
// timestamp entries still precede exits and batch order is kept.
func compareDisplay(a, b Row) int {
	if c := cmp.Compare(b.Timestamp, a.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(kindRank(a.Kind), kindRank(b.Kind)); c != 0 {
		return c
	}
	return cmp.Compare(a.position, b.position)
}

// SortAscending orders rows for processing, in place.
func SortAscending(rows []Row) {
	slices.SortStableFunc(rows, compareProcessing)
}

// SortDisplay orders rows for presentation, in place.
func SortDisplay(rows []Row) {
	slices.SortStableFunc(rows, compareDisplay)
}
