package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified fixturekit error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code, so the
// sentinel values below work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Sentinels for errors.Is matching. Only the code is compared.
var (
	ErrNoValidImplementationType      = New(ErrCodeNoValidImplementationType, "no valid implementation type")
	ErrInjectionFailure               = New(ErrCodeInjectionFailure, "injection failure")
	ErrCircularComposition            = New(ErrCodeCircularComposition, "circular composition")
	ErrDuplicateGeneratorRegistration = New(ErrCodeDuplicateGeneratorRegistration, "duplicate generator registration")
	ErrMissingDependencyName          = New(ErrCodeMissingDependencyName, "missing dependency name")
	ErrSelfDependency                 = New(ErrCodeSelfDependency, "self dependency")
	ErrDuplicateDependencyName        = New(ErrCodeDuplicateDependencyName, "duplicate dependency name")
	ErrUnknownGenerator               = New(ErrCodeUnknownGenerator, "unknown generator")
	ErrDuplicateFinderRegistration    = New(ErrCodeDuplicateFinderRegistration, "duplicate finder registration")
	ErrUnknownFinder                  = New(ErrCodeUnknownFinder, "unknown finder")
	ErrLifecyclePhaseFailure          = New(ErrCodeLifecyclePhaseFailure, "lifecycle phase failure")
)

// --- Constructors ---

// NoValidImplementationType creates an error for a dependency type that cannot be resolved to a constructible implementation.
func NoValidImplementationType(typeName, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeNoValidImplementationType,
		Message: fmt.Sprintf("Unable to find a valid implementation for type [%s]: %s", typeName, reason),
		Details: map[string]any{"type": typeName},
	}
}

// InjectionFailure creates an error for a slot that could not be populated.
func InjectionFailure(owner, slot, reason string) *AppError {
	details := map[string]any{"component": owner}
	if slot != "" {
		details["slot"] = slot
	}
	return &AppError{
		Code:    ErrCodeInjectionFailure,
		Message: fmt.Sprintf("Unable to inject slot [%s] of [%s]: %s", slot, owner, reason),
		Details: details,
	}
}

// CircularComposition creates an error for a nested fixture path that was already reached.
func CircularComposition(path, implementation string) *AppError {
	return &AppError{
		Code: ErrCodeCircularComposition,
		Message: fmt.Sprintf("The fixture %s already exists for the path: %s. The nested fixture configuration contains a loop.",
			implementation, path),
		Details: map[string]any{"path": path, "type": implementation},
	}
}

// DuplicateGeneratorRegistration creates an error for a generator type declared twice in one run.
func DuplicateGeneratorRegistration(typeName string) *AppError {
	return &AppError{
		Code: ErrCodeDuplicateGeneratorRegistration,
		Message: fmt.Sprintf("The generator %s is already registered. Only one instance of each generator can be declared.",
			typeName),
		Details: map[string]any{"type": typeName},
	}
}

// MissingDependencyName creates an error for a composite dependency registered without a name.
func MissingDependencyName(composite string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingDependencyName,
		Message: "A dependency must be registered with a non-empty name.",
		Details: map[string]any{"component": composite},
	}
}

// SelfDependency creates an error for a composite that depends on itself.
func SelfDependency(composite, name string) *AppError {
	return &AppError{
		Code:    ErrCodeSelfDependency,
		Message: fmt.Sprintf("The composite %s cannot depend on itself (dependency %q).", composite, name),
		Details: map[string]any{"component": composite, "name": name},
	}
}

// DuplicateDependencyName creates an error for a composite dependency name registered twice.
func DuplicateDependencyName(composite, name string) *AppError {
	return &AppError{
		Code:    ErrCodeDuplicateDependencyName,
		Message: fmt.Sprintf("The dependency %q is already registered on %s.", name, composite),
		Details: map[string]any{"component": composite, "name": name},
	}
}

// UnknownGenerator creates an error for a generator type not requested in the current run.
func UnknownGenerator(typeName string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownGenerator,
		Message: fmt.Sprintf("The generator %s was not requested for the current run.", typeName),
		Details: map[string]any{"type": typeName},
	}
}

// DuplicateFinderRegistration creates an error for a finder type declared twice in one run.
func DuplicateFinderRegistration(typeName string) *AppError {
	return &AppError{
		Code:    ErrCodeDuplicateFinderRegistration,
		Message: fmt.Sprintf("The finder %s is already registered. Only one instance of each finder can be declared.", typeName),
		Details: map[string]any{"type": typeName},
	}
}

// UnknownFinder creates an error for a finder type not requested in the current run.
func UnknownFinder(typeName string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownFinder,
		Message: fmt.Sprintf("The finder %s was not requested for the current run.", typeName),
		Details: map[string]any{"type": typeName},
	}
}

// LifecyclePhaseFailure wraps an error raised by a component during a lifecycle phase.
func LifecyclePhaseFailure(phase, component string, cause error) *AppError {
	details := map[string]any{"phase": phase}
	if component != "" {
		details["component"] = component
	}
	return &AppError{
		Code:    ErrCodeLifecyclePhaseFailure,
		Message: fmt.Sprintf("An unexpected error occurred during the %s phase of %s.", phase, orAll(component)),
		Details: details,
		Cause:   cause,
	}
}

// DatabaseError creates an error for a failed transaction operation on a managed resource.
func DatabaseError(operation, resource string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeDatabaseError,
		Message: fmt.Sprintf("Unable to %s on resource %s.", operation, orDefault(resource)),
		Details: map[string]any{"operation": operation, "resource": orDefault(resource)},
		Cause:   cause,
	}
}

// Configuration creates an error for invalid fixture configuration.
func Configuration(message string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: message}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "An unexpected internal error occurred.",
		Cause:   cause,
	}
}

// --- Inspection helpers ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &AppError{Code: code})
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

func orAll(component string) string {
	if component == "" {
		return "generators"
	}
	return component
}

func orDefault(resource string) string {
	if resource == "" {
		return "default"
	}
	return resource
}
