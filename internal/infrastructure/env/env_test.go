package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFloat(t *testing.T) {
	svc := &EnvService{}

	t.Setenv("RECOVERY_SIMILARITY_THRESHOLD", "0.75")
	assert.Equal(t, 0.75, svc.GetFloat("RECOVERY_SIMILARITY_THRESHOLD", 0))

	assert.Equal(t, 0.6, svc.GetFloat("RECOVERY_UNSET_FLOAT", 0.6))

	t.Setenv("RECOVERY_SIMILARITY_THRESHOLD", "not-a-number")
	assert.Equal(t, 0.6, svc.GetFloat("RECOVERY_SIMILARITY_THRESHOLD", 0.6))
}

func TestGetInt(t *testing.T) {
	svc := &EnvService{}

	t.Setenv("RECOVERY_MAX_WINDOWS", "7")
	assert.Equal(t, 7, svc.GetInt("RECOVERY_MAX_WINDOWS", 0))

	assert.Equal(t, 5, svc.GetInt("RECOVERY_UNSET_INT", 5))
}
