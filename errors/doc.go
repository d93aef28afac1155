// Package errors provides the structured error type used across fixturekit.
// Every failure raised while resolving, wiring or running fixtures is an
// *AppError carrying a machine-readable code, the offending path or
// component in Details, and the underlying cause.
package errors
