package physics

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPhysicsScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Physics Scenarios")
}
