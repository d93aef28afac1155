// Package validation checks fixturekit configuration structs.
//
// Struct tag validation uses go-playground/validator and reports field
// names by their mapstructure key, so messages match the YAML the user
// wrote. The programmatic Validator covers checks that depend on runtime
// state, such as whether a named state generator is registered.
//
//	type Config struct {
//	    CleanupOrder string `mapstructure:"cleanup_order" validate:"oneof=reverse declaration"`
//	}
//	err := validation.Validate(cfg)
//
//	v := validation.New()
//	v.Custom(state.Registered(name), "state_generator", "is not registered")
//	err := v.Validate()
package validation
