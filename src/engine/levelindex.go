package engine

import "github.com/google/btree"

// bidItem and askItem wrap a *PriceLevel so google/btree can order the two
// sides oppositely from the same underlying type: bids sort descending
// (best = highest = Min()), asks sort ascending (best = lowest = Min()).
// This mirrors the teacher's PriceLevelItem/PriceLevelItemAscending split.
type bidItem struct {
	level *PriceLevel
}

func (b *bidItem) Less(than btree.Item) bool {
	return b.level.price > than.(*bidItem).level.price
}

type askItem struct {
	level *PriceLevel
}

func (a *askItem) Less(than btree.Item) bool {
	return a.level.price < than.(*askItem).level.price
}

const btreeDegree = 32
