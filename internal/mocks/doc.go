// Package mocks provides shared test doubles for the store, search, event
// and auth interfaces.
//
// Most mocks use function fields: set the field for the behavior a test
// cares about and leave the rest to the defaults. TaskStore is a
// testify/mock mock for tests that assert on exact calls.
//
//	jwt := &mocks.MockJWTService{Token: "access-token"}
//	users := mocks.NewMockUserStore()
//	users.GetByEmailFn = func(ctx context.Context, email string) (*domain.User, error) {
//	    return nil, store.ErrUserNotFound
//	}
package mocks
