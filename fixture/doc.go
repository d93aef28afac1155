// Package fixture runs fixture generators around a test body.
//
// A Manager executes one fixture run per Statement:
//
//	Idle -> Building -> GeneratePhase -> TestBody -> CleanupPhase -> Idle
//
// Building constructs the requested generators and injects their slots.
// GeneratePhase calls Generate (or Before) on each generator, in declaration
// order, inside one transaction sweep over every managed resource of the run.
// TestBody runs the test with transactional interception live. CleanupPhase
// calls Cleanup (or After), by default in reverse declaration order, inside
// a second sweep.
//
// Usage with go test:
//
//	var env *fixture.Environment
//
//	func TestMain(m *testing.M) {
//	    cfg, _ := fixture.LoadConfig()
//	    env, _ = fixture.NewEnvironment(*cfg, fixture.WithComponents(db))
//	    _ = env.Init(context.Background())
//	    code := m.Run()
//	    _ = env.Teardown(context.Background())
//	    os.Exit(code)
//	}
//
//	func TestOrders(t *testing.T) {
//	    m := env.NewManager()
//	    fixture.Run(t, m, fixture.Metadata{
//	        Generators: []reflect.Type{fixture.TypeOf[*UserGenerator]()},
//	    }, func(t *testing.T) {
//	        users, _ := fixture.Get[*UserGenerator](m)
//	        ...
//	    })
//	}
package fixture
