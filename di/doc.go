// Package di wires fixture components together by reflection.
//
// Components declare their collaborators as tagged struct fields (slots):
//
//	type UserGenerator struct {
//	    generator.Composite
//	    Dao   UserDao            `fixture:"singleton"`
//	    Roles *RoleGenerator     `fixture:"nested"`
//	    DB    txn.Resource       `fixture:"resource"`
//	    Audit txn.Resource       `fixture:"resource,name=audit"`
//	    Ctx   *di.ContextStore   `fixture:"context"`
//	}
//
// # Implementation lookup
//
// A Catalog maps a slot type to its implementation. Pointer-to-struct types
// resolve to themselves. Interfaces resolve by name convention: the interface
// name without its first character, in the same package
// (IUserDao -> pkg.UserDao), registered with Register or Provide:
//
//	catalog := di.NewCatalog()
//	catalog.Register((*UserDao)(nil))
//	catalog.Provide("", func() (IRoleDao, error) { return newRoleDao(), nil })
//
// # Injection
//
// An Injector walks a component graph for one run. Singleton slots share one
// instance per implementation type, nested slots get a fresh instance per
// dotted path, resource slots receive a managed resource from the run's
// txn.Set, and context slots receive the run's ContextStore.
package di
