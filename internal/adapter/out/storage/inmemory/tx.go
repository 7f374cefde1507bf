package inmemory

import "context"

// TxManager runs fn directly. PostStorage applies every write under its own
// lock, including the version check of an update.
type TxManager struct{}

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (*TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
