package cmdtest

import (
	"testing"
)

func TestMain(m *testing.M) {
	Main(m)
}

func TestCix(t *testing.T) {
	Run(t, "testdata/cix")
}

func TestCixls(t *testing.T) {
	Run(t, "testdata/cixls")
}
