package staging

import "strings"

// Canonical staging column names, in artifact order.
const (
	ColOrderDate            = "order_date"
	ColShipDate             = "ship_date"
	ColOrderNumber          = "order_number"
	ColOrderLineNumber      = "order_line_number"
	ColProductCode          = "product_code"
	ColProductLine          = "product_line"
	ColSuggestedRetailPrice = "suggested_retail_price"
	ColCustomerID           = "customer_id"
	ColCustomerName         = "customer_name"
	ColCity                 = "city"
	ColCountry              = "country"
	ColTerritory            = "territory"
	ColContactLastName      = "contact_lastname"
	ColContactFirstName     = "contact_firstname"
	ColQuantityOrdered      = "quantity_ordered"
	ColPriceEach            = "price_each"
	ColSales                = "sales"
	ColStatus               = "status"
)

// Columns lists every required column in canonical order.
var Columns = []string{
	ColOrderDate, ColShipDate, ColOrderNumber, ColOrderLineNumber,
	ColProductCode, ColProductLine, ColSuggestedRetailPrice,
	ColCustomerID, ColCustomerName, ColCity, ColCountry, ColTerritory, ColContactLastName, ColContactFirstName,
	ColQuantityOrdered, ColPriceEach, ColSales, ColStatus,
}

// aliases maps folded raw export names that do not fold onto a canonical name by themselves.
var aliases = map[string]string{
	"msrp": ColSuggestedRetailPrice,
}

var byFolded = func() map[string]string {
	m := make(map[string]string, len(Columns)+len(aliases))
	for _, c := range Columns {
		m[fold(c)] = c
	}
	for raw, c := range aliases {
		m[raw] = c
	}
	return m
}()

// fold lowercases a header and drops separators, so ORDERDATE, OrderDate and order_date
// compare equal.
func fold(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', ' ', '-', '.':
			return -1
		}
		return r
	}, name)
}

// CanonicalColumn returns the canonical name of a header cell, or false for columns the
// loader does not use.
func CanonicalColumn(header string) (string, bool) {
	c, ok := byFolded[fold(header)]
	return c, ok
}
