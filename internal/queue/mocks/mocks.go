// Package mocks provides a testify mock for the mint queue.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tixgate/internal/model"
	"tixgate/internal/queue"
)

type MockMintQueue struct {
	mock.Mock
}

func NewMockMintQueue() *MockMintQueue {
	return &MockMintQueue{}
}

func (m *MockMintQueue) PublishMintJob(ctx context.Context, job *model.MintJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockMintQueue) SubscribeMintJobs(ctx context.Context) (<-chan queue.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan queue.Delivery), args.Error(1)
}
