package queue

import (
	"context"

	"tixgate/internal/model"
)

// Delivery wraps a mint job for the worker. Ack settles the message; Nack
// with requeue leaves it for redelivery, giving at-least-once semantics.
type Delivery struct {
	Job  *model.MintJob
	Ack  func()
	Nack func(requeue bool)
}

// MintQueue hands mint requests to the external minting worker. Dispatch is
// fire-and-forget relative to settlement: a publish failure is logged by the
// caller and never rolls back a committed payment.
type MintQueue interface {
	PublishMintJob(ctx context.Context, job *model.MintJob) error
	SubscribeMintJobs(ctx context.Context) (<-chan Delivery, error)
}

// MemoryMintQueue is a channel-backed queue for tests and single-process
// runs.
type MemoryMintQueue struct {
	ch chan *model.MintJob
}

func NewMemoryMintQueue(bufferSize int) *MemoryMintQueue {
	return &MemoryMintQueue{ch: make(chan *model.MintJob, bufferSize)}
}

func (q *MemoryMintQueue) PublishMintJob(ctx context.Context, job *model.MintJob) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryMintQueue) SubscribeMintJobs(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.ch:
				if !ok {
					return
				}
				out <- Delivery{
					Job: job,
					Ack: func() {},
					Nack: func(requeue bool) {
						if requeue {
							q.ch <- job
						}
					},
				}
			}
		}
	}()

	return out, nil
}
