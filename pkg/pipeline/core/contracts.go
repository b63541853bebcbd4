package core

import "context"

// InputAdapter loads input records for pipeline processing.
type InputAdapter[In any] interface {
	Load(ctx context.Context) ([]In, error)
}

// OutputAdapter persists output records produced by pipeline processing.
type OutputAdapter[Out any] interface {
	Store(ctx context.Context, rows []Out) error
}

// Processor transforms one input item into one output item.
type Processor[In any, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
}

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (f ProcessFunc[In, Out]) Process(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// LoadFunc adapts a function to the InputAdapter interface.
type LoadFunc[In any] func(ctx context.Context) ([]In, error)

func (f LoadFunc[In]) Load(ctx context.Context) ([]In, error) {
	return f(ctx)
}

// StoreFunc adapts a function to the OutputAdapter interface.
type StoreFunc[Out any] func(ctx context.Context, rows []Out) error

func (f StoreFunc[Out]) Store(ctx context.Context, rows []Out) error {
	return f(ctx, rows)
}
