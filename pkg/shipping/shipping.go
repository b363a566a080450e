// pkg/shipping/shipping.go

// Package shipping partitions aggregated orders into shippable and
// unshippable sets. Orders destined for an excluded state can still ship
// when the partner has an international shipping account to substitute.
package shipping

import (
	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// Partition splits the aggregate map. The excluded-state filter applies
// to every order regardless of partner; an excluded order whose
// dropshipper has an international-account substitute is rewritten in
// place to the substitute id and classified shippable.
func Partition(
	orders map[string]*model.PurchaseOrder,
	excludedStates map[string]struct{},
	internationalAccounts map[int]int,
	logger *zap.Logger,
) (unableToShip, shippable map[string]*model.PurchaseOrder) {
	unableToShip = make(map[string]*model.PurchaseOrder)
	shippable = make(map[string]*model.PurchaseOrder)

	for number, order := range orders {
		if _, excluded := excludedStates[order.State]; !excluded {
			shippable[number] = order
			continue
		}

		if substitute, ok := internationalAccounts[order.DropshipperID]; ok {
			order.DropshipperID = substitute
			shippable[number] = order
			continue
		}

		unableToShip[number] = order
	}

	if len(unableToShip) > 0 {
		logger.Warn("Orders cannot be shipped",
			zap.Int("count", len(unableToShip)),
			zap.Int("shippable", len(shippable)))
	}

	return unableToShip, shippable
}
