package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Resolution and wiring errors
const (
	// ErrCodeNoValidImplementationType indicates no constructible implementation exists for a dependency type.
	ErrCodeNoValidImplementationType ErrorCode = "NO_VALID_IMPLEMENTATION_TYPE"
	// ErrCodeInjectionFailure indicates a slot could not be populated (not settable, wrong type, invalid tag).
	ErrCodeInjectionFailure ErrorCode = "INJECTION_FAILURE"
	// ErrCodeCircularComposition indicates a nested fixture path was reached twice.
	ErrCodeCircularComposition ErrorCode = "CIRCULAR_COMPOSITION"
)

// Registration errors
const (
	// ErrCodeDuplicateGeneratorRegistration indicates a generator type was declared twice for one run.
	ErrCodeDuplicateGeneratorRegistration ErrorCode = "DUPLICATE_GENERATOR_REGISTRATION"
	// ErrCodeMissingDependencyName indicates a composite dependency was registered without a name.
	ErrCodeMissingDependencyName ErrorCode = "MISSING_DEPENDENCY_NAME"
	// ErrCodeSelfDependency indicates a composite tried to depend on itself.
	ErrCodeSelfDependency ErrorCode = "SELF_DEPENDENCY"
	// ErrCodeDuplicateDependencyName indicates a composite dependency name was registered twice.
	ErrCodeDuplicateDependencyName ErrorCode = "DUPLICATE_DEPENDENCY_NAME"
	// ErrCodeUnknownGenerator indicates a generator lookup for a type not requested in the current run.
	ErrCodeUnknownGenerator ErrorCode = "UNKNOWN_GENERATOR"
	// ErrCodeDuplicateFinderRegistration indicates a finder type was declared twice for one run.
	ErrCodeDuplicateFinderRegistration ErrorCode = "DUPLICATE_FINDER_REGISTRATION"
	// ErrCodeUnknownFinder indicates a finder lookup for a type not requested in the current run.
	ErrCodeUnknownFinder ErrorCode = "UNKNOWN_FINDER"
)

// Lifecycle errors
const (
	// ErrCodeLifecyclePhaseFailure wraps an error raised by a generator during generate or cleanup.
	ErrCodeLifecyclePhaseFailure ErrorCode = "LIFECYCLE_PHASE_FAILURE"
	// ErrCodeDatabaseError indicates a managed resource failed to begin, commit or roll back.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeConfiguration indicates invalid fixture configuration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var buildCodes = map[ErrorCode]bool{
	ErrCodeNoValidImplementationType:      true,
	ErrCodeInjectionFailure:               true,
	ErrCodeCircularComposition:            true,
	ErrCodeDuplicateGeneratorRegistration: true,
	ErrCodeDuplicateFinderRegistration:    true,
	ErrCodeConfiguration:                  true,
}

// IsBuildCode returns true if the code is raised while a fixture run is being
// built, before any transaction is opened.
func IsBuildCode(code ErrorCode) bool {
	return buildCodes[code]
}
