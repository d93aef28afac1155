// Package observability provides OpenTelemetry tracing and metrics for
// fixture runs.
//
// Every lifecycle phase of a run gets its own span, and transaction
// sweeps are counted per resource so unbalanced begin/commit pairs show up
// in metrics.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("orders-tests"))
//	defer tp.Shutdown(ctx)
//
// Phases:
//
//	pc := observability.NewPhaseContext(run, observability.PhaseGenerate, metrics)
//	ctx, span := pc.Start(ctx)
//	err := generateAll(ctx)
//	pc.End(ctx, span, err)
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter("fixturekit"))
//	metrics.RecordTxn(ctx, "default", observability.TxnCommit)
package observability
