package guard

import (
	"context"

	"educonnect/internal/auth"
)

// Watch verifies req once and then again on every change to its principal,
// calling emit with each result, until ctx is cancelled or changes closes.
// After a sign-out the tab is re-verified anonymously and stays anonymous.
func (g *Guard) Watch(ctx context.Context, req Request, changes <-chan auth.PrincipalChange, emit func(Outcome, error)) error {
	emit(g.Verify(ctx, req))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return ctx.Err()
			}
			if req.Principal == nil || change.PrincipalID != req.Principal.ID {
				continue
			}
			if change.Kind == auth.SignedOut {
				req.Principal = nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			emit(g.Verify(ctx, req))
		}
	}
}
