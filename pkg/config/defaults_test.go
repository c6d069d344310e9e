package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveMaxIterationsDefault(t *testing.T) {
	var d *Defaults
	assert.Equal(t, DefaultMaxIterations, d.ResolveMaxIterations())

	empty := &Defaults{}
	assert.Equal(t, DefaultMaxIterations, empty.ResolveMaxIterations())
}

func TestResolveMaxIterationsOverride(t *testing.T) {
	n := 7
	d := &Defaults{MaxIterations: &n}
	assert.Equal(t, 7, d.ResolveMaxIterations())
}
