// Package txn defines the managed transactional resource a fixture run
// works against, the per-run set that sweeps transactions over every
// resource in use, and the boundary components use to wrap their own
// mutating operations.
//
// A run opens one transaction sweep around generation and another around
// cleanup:
//
//	set := txn.NewSet(provider)
//	err := set.Within(ctx, func(ctx context.Context) error {
//	    return generateAll(ctx)
//	})
//
// While the test body runs, components call through their boundary so
// that create, update and delete operations get their own transaction:
//
//	func (d *UserDao) CreateUser(ctx context.Context, u *User) error {
//	    return d.boundary.Invoke(ctx, "CreateUser", func(ctx context.Context) error {
//	        return d.db.WithContext(ctx).Create(u).Error
//	    })
//	}
package txn
