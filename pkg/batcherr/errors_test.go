package batcherr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMalformedInputMessages(t *testing.T) {
	require.Equal(t, "malformed input: empty source",
		(&MalformedInputError{Reason: "empty source"}).Error())
	require.Equal(t, "malformed input: column ORDERDATE: required column missing",
		(&MalformedInputError{Column: "ORDERDATE", Reason: "required column missing"}).Error())
	require.Equal(t, `malformed input: line 3, column order_date, value "31/12/2022": not a date`,
		(&MalformedInputError{Line: 3, Column: "order_date", Value: "31/12/2022", Reason: "not a date"}).Error())
}

func TestClassificationThroughWrapping(t *testing.T) {
	malformed := fmt.Errorf("normalize: %w", &MalformedInputError{Reason: "x"})
	integrity := fmt.Errorf("historize: %w", &IntegrityViolationError{Dimension: "products", NaturalKey: "S10_1678", CurrentRows: 2})
	transient := errors.New("connection reset")

	require.True(t, IsMalformedInput(malformed))
	require.False(t, IsIntegrityViolation(malformed))
	require.True(t, IsIntegrityViolation(integrity))

	require.True(t, IsFatal(malformed))
	require.True(t, IsFatal(integrity))
	require.False(t, IsFatal(transient))

	require.Equal(t, TypeMalformedInput, Type(malformed))
	require.Equal(t, TypeIntegrityViolation, Type(integrity))
	require.Empty(t, Type(transient))
}
