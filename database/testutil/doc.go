// Package testutil provides testing utilities for the database module.
//
// NewProvider starts an in-memory database provider that is stopped when the
// test ends:
//
//	p := testutil.NewProvider(t, &User{})
//	db := p.DB("").GormDB
//
// The row helpers take any *gorm.DB, including the transaction returned by
// database.Resource.DB:
//
//	MustLoadFixture(t, db, "users", []map[string]interface{}{
//	    {"id": "1", "name": "Alice"},
//	})
//	AssertRowCount(t, db, "users", 1)
package testutil
