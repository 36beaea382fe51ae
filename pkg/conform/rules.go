package conform

import (
	"strconv"
	"strings"

	"github.com/canopy-network/salesdw/pkg/db/entities"
	"github.com/canopy-network/salesdw/pkg/db/models/warehouse"
)

// TerritoryNotSpecified is the canonical value stored for a blank territory.
const TerritoryNotSpecified = "not specified"

// Rules tells the conformer how members of one dimension are keyed, normalized and compared.
// Equal is only ever called with normalized members.
type Rules[T any] struct {
	Dimension entities.Dimension
	Key       func(T) string
	Normalize func(T) T
	Equal     func(a, b T) bool
}

// Matches applies the dimension's normalization to both sides and compares every attribute.
func (r Rules[T]) Matches(a, b T) bool {
	return r.Equal(r.Normalize(a), r.Normalize(b))
}

// NormalizeTerritory maps a blank territory to TerritoryNotSpecified.
func NormalizeTerritory(territory string) string {
	territory = strings.TrimSpace(territory)
	if territory == "" {
		return TerritoryNotSpecified
	}
	return territory
}

// ProductRules compares product line, suggested retail price and unit price. Prices are
// compared at the warehouse scale of two decimals.
var ProductRules = Rules[warehouse.Product]{
	Dimension: entities.Products,
	Key:       func(p warehouse.Product) string { return p.ProductCode },
	Normalize: func(p warehouse.Product) warehouse.Product {
		p.ProductCode = strings.TrimSpace(p.ProductCode)
		p.ProductLine = strings.TrimSpace(p.ProductLine)
		p.PriceEach = p.PriceEach.Round(2)
		return p
	},
	Equal: ProductsEqual,
}

// ProductsEqual is the attribute-for-attribute product predicate.
func ProductsEqual(a, b warehouse.Product) bool {
	return a.ProductCode == b.ProductCode &&
		a.ProductLine == b.ProductLine &&
		a.SuggestedRetailPrice == b.SuggestedRetailPrice &&
		a.PriceEach.Equal(b.PriceEach)
}

// CustomerRules compares contact and geography fields, treating a blank territory as
// TerritoryNotSpecified on both sides.
var CustomerRules = Rules[warehouse.Customer]{
	Dimension: entities.Customers,
	Key:       func(c warehouse.Customer) string { return strconv.FormatInt(c.CustomerID, 10) },
	Normalize: func(c warehouse.Customer) warehouse.Customer {
		c.CustomerName = strings.TrimSpace(c.CustomerName)
		c.City = strings.TrimSpace(c.City)
		c.Country = strings.TrimSpace(c.Country)
		c.Territory = NormalizeTerritory(c.Territory)
		c.ContactLastName = strings.TrimSpace(c.ContactLastName)
		c.ContactFirstName = strings.TrimSpace(c.ContactFirstName)
		return c
	},
	Equal: CustomersEqual,
}

// CustomersEqual is the attribute-for-attribute customer predicate.
func CustomersEqual(a, b warehouse.Customer) bool {
	return a == b
}

// StatusRules keys statuses by their label; a known label never changes.
var StatusRules = Rules[warehouse.Status]{
	Dimension: entities.Statuses,
	Key:       func(s warehouse.Status) string { return s.Status },
	Normalize: func(s warehouse.Status) warehouse.Status {
		s.Status = strings.TrimSpace(s.Status)
		return s
	},
	Equal: func(a, b warehouse.Status) bool { return a == b },
}
