// Package mocks provides a testify mock for the inventory gate.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockInventoryGate struct {
	mock.Mock
}

func NewMockInventoryGate() *MockInventoryGate {
	return &MockInventoryGate{}
}

func (m *MockInventoryGate) Warm(ctx context.Context, ticketTypeID int, stock int, limit int) error {
	args := m.Called(ctx, ticketTypeID, stock, limit)
	return args.Error(0)
}

func (m *MockInventoryGate) GetStock(ctx context.Context, ticketTypeID int) (int, error) {
	args := m.Called(ctx, ticketTypeID)
	return args.Int(0), args.Error(1)
}

func (m *MockInventoryGate) Reserve(ctx context.Context, ticketTypeID int, quantity int, buyerID int) error {
	args := m.Called(ctx, ticketTypeID, quantity, buyerID)
	return args.Error(0)
}

func (m *MockInventoryGate) Release(ctx context.Context, ticketTypeID int, quantity int, buyerID int) error {
	args := m.Called(ctx, ticketTypeID, quantity, buyerID)
	return args.Error(0)
}
