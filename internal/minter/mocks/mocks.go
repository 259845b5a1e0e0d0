// Package mocks provides a testify mock for the minting worker client.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tixgate/internal/model"
)

type MockClient struct {
	mock.Mock
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Mint(ctx context.Context, job *model.MintJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
