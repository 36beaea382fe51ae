// Package entities is the catalogue of historized warehouse dimensions.
//
// Every table, key column and fact reference derived from a dimension name is computed here, so
// the warehouse store, the loader activities and the workflow iterate the same list:
//
//	for _, dim := range entities.All() {
//	    workflow.ExecuteActivity(ctx, ac.HistorizeDimension, types.ActivityHistorizeInput{Dimension: dim.String()})
//	}
//
// All functions and methods in this package are safe for concurrent use.
package entities

import (
	"fmt"
	"sort"
	"strings"
)

// Dimension names an SCD Type 2 dimension. Use the package constants rather than constructing
// values directly; FromString validates external input.
type Dimension string

const (
	// Products is keyed by product_code. Table: dim_products.
	Products Dimension = "products"

	// Customers is keyed by customer_id. Table: dim_customers.
	Customers Dimension = "customers"

	// Statuses is keyed by the order status label. Table: dim_status.
	Statuses Dimension = "status"
)

type spec struct {
	surrogateKey string
	naturalKey   string
	attributes   []string
	factColumn   string
}

// allDimensions is in historization order; fact columns follow the same order.
var allDimensions = []Dimension{
	Products,
	Customers,
	Statuses,
}

var specs = map[Dimension]spec{
	Products: {
		surrogateKey: "product_pk",
		naturalKey:   "product_code",
		attributes:   []string{"product_line", "suggested_retail_price", "price_each"},
		factColumn:   "product_fk",
	},
	Customers: {
		surrogateKey: "customer_pk",
		naturalKey:   "customer_id",
		attributes: []string{
			"customer_name", "city", "country", "territory", "contact_lastname", "contact_firstname",
		},
		factColumn: "customer_fk",
	},
	Statuses: {
		surrogateKey: "status_pk",
		naturalKey:   "status",
		factColumn:   "status_fk",
	},
}

func init() {
	for _, d := range allDimensions {
		if d == "" || strings.ContainsAny(string(d), " \t") {
			panic(fmt.Sprintf("entities: invalid dimension name %q", d))
		}
		if _, ok := specs[d]; !ok {
			panic(fmt.Sprintf("entities: dimension %q has no column spec", d))
		}
	}
}

func (d Dimension) String() string {
	return string(d)
}

// TableName returns the warehouse table, e.g. dim_products.
func (d Dimension) TableName() string {
	return "dim_" + string(d)
}

// SurrogateKeyColumn returns the identity column assigned by the store on insert.
func (d Dimension) SurrogateKeyColumn() string {
	return specs[d].surrogateKey
}

// NaturalKeyColumn returns the business key column.
func (d Dimension) NaturalKeyColumn() string {
	return specs[d].naturalKey
}

// AttributeColumns returns the non-key columns compared when deciding on a new version.
// The returned slice is a copy.
func (d Dimension) AttributeColumns() []string {
	attrs := specs[d].attributes
	out := make([]string, len(attrs))
	copy(out, attrs)
	return out
}

// MemberColumns returns the natural key followed by the attribute columns.
func (d Dimension) MemberColumns() []string {
	return append([]string{d.NaturalKeyColumn()}, specs[d].attributes...)
}

// FactColumn returns the fact_sales foreign key column referencing this dimension.
func (d Dimension) FactColumn() string {
	return specs[d].factColumn
}

// IsValid reports whether d is a known dimension.
func (d Dimension) IsValid() bool {
	_, ok := specs[d]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (d Dimension) MarshalText() ([]byte, error) {
	return []byte(d), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown dimensions.
func (d *Dimension) UnmarshalText(text []byte) error {
	dim := Dimension(text)
	if !dim.IsValid() {
		return fmt.Errorf("invalid dimension: %q", text)
	}
	*d = dim
	return nil
}

// FromString converts external input to a Dimension.
func FromString(s string) (Dimension, error) {
	dim := Dimension(s)
	if !dim.IsValid() {
		return "", fmt.Errorf("unknown dimension %q, valid dimensions: %s", s, validDimensionsString())
	}
	return dim, nil
}

// All returns a copy of every dimension in historization order.
func All() []Dimension {
	result := make([]Dimension, len(allDimensions))
	copy(result, allDimensions)
	return result
}

// AllStrings returns the dimension names.
func AllStrings() []string {
	result := make([]string, len(allDimensions))
	for i, d := range allDimensions {
		result[i] = d.String()
	}
	return result
}

func validDimensionsString() string {
	names := AllStrings()
	sort.Strings(names)
	return strings.Join(names, ", ")
}
