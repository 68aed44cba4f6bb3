package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInTestModeReadsEnvOnce(t *testing.T) {
	t.Setenv("BILLHIVE_TEST_MODE", "1")
	assert.True(t, InTestMode())

	// The flag is latched on first use; a later env change cannot flip a
	// process that already committed to starting up.
	t.Setenv("BILLHIVE_TEST_MODE", "0")
	assert.True(t, InTestMode())
}
