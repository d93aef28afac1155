// Package database serves GORM databases as fixture-managed resources.
//
// A Provider opens one database per configured name and hands out Resource
// values implementing txn.Resource. Generators reach their database through a
// resource slot and run queries on Resource.DB, which returns the sweep's
// open transaction during generate and cleanup:
//
//	type UserGenerator struct {
//	    DB *database.Resource `fixture:"resource"`
//	}
//
//	func (g *UserGenerator) Generate(ctx context.Context) error {
//	    return g.DB.DB(ctx).Create(&User{Name: "ada"}).Error
//	}
//
// Registering the provider with the fixture environment:
//
//	db := database.NewProvider(map[string]database.Config{
//	    "audit": {DSN: "file:audit.db"},
//	}, database.WithModels(&User{}))
//	env, err := fixture.NewEnvironment(cfg, fixture.WithComponents(db))
//
// Databases without a DSN are private in-memory SQLite databases pinned to a
// single connection. While a transaction is open on such a database, queries
// must go through Resource.DB; a query on the raw *gorm.DB waits for the
// connection until the transaction ends.
//
// Importing this package registers SnapshotState under the state generator
// name "snapshot".
//
// # Subpackages
//
//   - migration: golang-migrate runner and programmatic migrations
//   - testutil: in-memory providers and row assertions for tests
package database
