package runner_test

import (
	"testing"

	"go.uber.org/goleak"
)

// Both strategies spawn goroutines; none may outlive Run.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
