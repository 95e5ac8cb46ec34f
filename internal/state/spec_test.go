package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walletSpec() *ContainerSpec {
	return &ContainerSpec{
		Name:          "wallet",
		IdentityField: "currency",
		Fields: map[string]FieldType{
			"currency": FieldString,
			"amount":   FieldInt,
			"locked":   FieldBool,
		},
	}
}

func TestContainerSpec_IdentityOf_Deterministic(t *testing.T) {
	spec := walletSpec()

	a, err := spec.IdentityOf(Object{"currency": String("gold"), "amount": Int(10)})
	require.NoError(t, err)
	b, err := spec.IdentityOf(Object{"currency": String("gold"), "amount": Int(999)})
	require.NoError(t, err)

	assert.Equal(t, a, b, "identity depends only on the identity field")
}

func TestContainerSpec_IdentityOf_MissingField(t *testing.T) {
	spec := walletSpec()

	_, err := spec.IdentityOf(Object{"amount": Int(10)})
	assert.Error(t, err)
}

func TestContainerSpec_IdentityOf_NonStringField(t *testing.T) {
	spec := walletSpec()

	_, err := spec.IdentityOf(Object{"currency": Int(1)})
	assert.Error(t, err)
}

func TestContainerSpec_Namespace_PerContainer(t *testing.T) {
	wallet := walletSpec()
	other := &ContainerSpec{Name: "bank", IdentityField: "currency"}

	assert.NotEqual(t, wallet.Namespace(), other.Namespace())
	assert.Equal(t, wallet.Namespace(), walletSpec().Namespace())
}

func TestContainerSpec_ValidatePayload(t *testing.T) {
	spec := walletSpec()

	assert.NoError(t, spec.ValidatePayload(Object{
		"currency": String("gold"),
		"amount":   Int(10),
		"locked":   Bool(false),
	}))

	// Partial change payload: identity field plus the changed field only.
	assert.NoError(t, spec.ValidatePayload(Object{
		"currency": String("gold"),
		"amount":   Int(25),
	}))
}

func TestContainerSpec_ValidatePayload_Errors(t *testing.T) {
	spec := walletSpec()

	err := spec.ValidatePayload(Object{"currency": String("gold"), "bogus": Int(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown payload field")

	err = spec.ValidatePayload(Object{"currency": String("gold"), "amount": String("lots")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be int")

	err = spec.ValidatePayload(Object{"amount": Int(1)})
	assert.Error(t, err, "identity field is always required")
}
