// Package logger provides structured logging for fixturekit using zerolog.
//
// Every fixture run logs through a component-scoped logger. Phase
// transitions, generator registration, path resolution and transaction
// sweeps carry the field keys declared in fields.go so a run can be
// followed in JSON output.
//
// # Configuration
//
//	fixture:
//	  logging:
//	    level: "debug"
//	    format: "json"
//
// # Usage
//
//	log := logger.Get("fixture")
//	log.Info("phase entered", logger.Fields(logger.FieldPhase, "generate"))
package logger
