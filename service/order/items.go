package order

import "sort"

// ItemInput is one requested line: a product and how many units of it.
type ItemInput struct {
	ProductID int64
	Quantity  int64
}

// normalizeItems validates a requested item list and puts it into canonical
// form: duplicate product lines merged by summing quantities, then sorted by
// ascending product id. Every order operation locks products in this order,
// which keeps two orders over overlapping product sets from deadlocking, and
// the merge keeps the (order, product) primary key collision-free.
func normalizeItems(items []ItemInput) ([]ItemInput, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	merged := make(map[int64]int64, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		merged[item.ProductID] += item.Quantity
	}

	res := make([]ItemInput, 0, len(merged))
	for productID, quantity := range merged {
		res = append(res, ItemInput{ProductID: productID, Quantity: quantity})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].ProductID < res[j].ProductID
	})
	return res, nil
}
