package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringUsesStampedValues(t *testing.T) {
	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })

	Version, Commit, Date = "v1.2.3", "abcdef0", "2026-10-01T12:00:00Z"
	assert.Equal(t, "v1.2.3 (abcdef0, 2026-10-01T12:00:00Z)", String())
}

func TestInfoNeverEmpty(t *testing.T) {
	v, c, d := Info()
	assert.NotEmpty(t, v)
	assert.NotEmpty(t, c)
	assert.NotEmpty(t, d)
}
