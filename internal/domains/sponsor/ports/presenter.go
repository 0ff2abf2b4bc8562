package ports

import (
	"context"
	"errors"
)

// ErrCannotRender is returned by presenters that have no surface to draw on.
var ErrCannotRender = errors.New("sponsor interstitial cannot render")

// Presenter shows the sponsor interstitial and returns once it is dismissed.
type Presenter interface {
	Show(ctx context.Context) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context) error

func (f PresenterFunc) Show(ctx context.Context) error { return f(ctx) }

// Gate is the checkpoint callers block on. It never fails.
type Gate interface {
	Present(ctx context.Context)
}
