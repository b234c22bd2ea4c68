//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// All runs the tests with the race detector.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// NoGPU runs the tests that do not need the HAL backend.
func (Test) NoGPU() error {
	_, err := executeCmd("go", withArgs("test", "-tags", "nogpu", "./..."), withStream())
	return err
}

// Lint runs go vet and gofmt.
func (Test) Lint() error {
	if _, err := executeCmd("go", withArgs("vet", "./...")); err != nil {
		return err
	}
	out, err := executeCmd("gofmt", withArgs("-l", "."))
	if err != nil {
		return err
	}
	if out != "" {
		return mg.Fatalf(1, "unformatted files:\n%s", out)
	}
	return nil
}
