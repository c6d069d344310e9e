package config

// Defaults contains system-wide default configuration values.
type Defaults struct {
	// MaxIterations bounds the agent graph's agent/tools loop; exceeding it
	// ends the run with apperrors.ErrMaxIterationsExceeded rather than
	// looping forever. Defaults to 20.
	MaxIterations *int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
}

// DefaultMaxIterations is used when no override is configured.
const DefaultMaxIterations = 20

// ResolveMaxIterations returns the configured cap or DefaultMaxIterations.
func (d *Defaults) ResolveMaxIterations() int {
	if d != nil && d.MaxIterations != nil {
		return *d.MaxIterations
	}
	return DefaultMaxIterations
}
