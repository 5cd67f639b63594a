package process

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeOfNilIsZero(t *testing.T) {
	assert.Equal(t, 0, exitCodeOf(nil))
}

func TestExitCodeOfNonExitErrorIsNegativeOne(t *testing.T) {
	assert.Equal(t, -1, exitCodeOf(errors.New("boom")))
}

func TestExitCodeOfExitErrorReportsCode(t *testing.T) {
	cmd := exec.Command("false")
	err := cmd.Run()
	var exitErr *exec.ExitError
	if assert.ErrorAs(t, err, &exitErr) {
		assert.Equal(t, 1, exitCodeOf(exitErr))
	}
}
