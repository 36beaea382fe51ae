package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionMetadata(t *testing.T) {
	tests := []struct {
		name       string
		dim        Dimension
		table      string
		surrogate  string
		natural    string
		factColumn string
		attributes int
	}{
		{"products", Products, "dim_products", "product_pk", "product_code", "product_fk", 3},
		{"customers", Customers, "dim_customers", "customer_pk", "customer_id", "customer_fk", 6},
		{"status", Statuses, "dim_status", "status_pk", "status", "status_fk", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.table, tt.dim.TableName())
			assert.Equal(t, tt.surrogate, tt.dim.SurrogateKeyColumn())
			assert.Equal(t, tt.natural, tt.dim.NaturalKeyColumn())
			assert.Equal(t, tt.factColumn, tt.dim.FactColumn())
			assert.Len(t, tt.dim.AttributeColumns(), tt.attributes)
			assert.Equal(t, tt.natural, tt.dim.MemberColumns()[0])
			assert.True(t, tt.dim.IsValid())
		})
	}
}

func TestAttributeColumnsIsACopy(t *testing.T) {
	cols := Products.AttributeColumns()
	cols[0] = "mutated"
	assert.Equal(t, "product_line", Products.AttributeColumns()[0])
}

func TestFromString(t *testing.T) {
	dim, err := FromString("customers")
	require.NoError(t, err)
	assert.Equal(t, Customers, dim)

	_, err = FromString("dates")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customers, products, status")
}

func TestAllOrder(t *testing.T) {
	assert.Equal(t, []Dimension{Products, Customers, Statuses}, All())
	assert.Equal(t, []string{"products", "customers", "status"}, AllStrings())
}

func TestJSONRoundTripRejectsUnknown(t *testing.T) {
	var payload struct {
		Dimension Dimension `json:"dimension"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"dimension":"status"}`), &payload))
	assert.Equal(t, Statuses, payload.Dimension)

	require.Error(t, json.Unmarshal([]byte(`{"dimension":"stores"}`), &payload))
}
