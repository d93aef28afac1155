// Package component defines the lifecycle contract for infrastructure that a
// fixture environment starts before its first run and stops at teardown,
// such as the database provider.
package component
