package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_TotalAmount(t *testing.T) {
	cart := &Cart{
		Lines: []CartLine{
			{ProductItemID: "a", UnitPrice: 1500, Quantity: 2},
			{ProductItemID: "b", UnitPrice: 1200, Quantity: 1},
		},
	}

	assert.Equal(t, int64(4200), cart.TotalAmount())
	assert.False(t, cart.IsEmpty())
	assert.True(t, (&Cart{}).IsEmpty())
}

func TestCart_FindLine(t *testing.T) {
	cart := &Cart{
		Lines: []CartLine{
			{ProductItemID: "a", Quantity: 2},
		},
	}

	line, ok := cart.FindLine("a")
	assert.True(t, ok)
	assert.Equal(t, 2, line.Quantity)

	_, ok = cart.FindLine("missing")
	assert.False(t, ok)
}

func TestAddItemRequest_Validate(t *testing.T) {
	assert.NoError(t, (&AddItemRequest{ProductItemID: "a", Quantity: 1}).Validate())
	assert.Error(t, (&AddItemRequest{ProductItemID: "", Quantity: 1}).Validate())
	assert.Error(t, (&AddItemRequest{ProductItemID: "a", Quantity: 0}).Validate())
	assert.Error(t, (&AddItemRequest{ProductItemID: "a", Quantity: -3}).Validate())
}
