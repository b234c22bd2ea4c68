//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Demo builds the rtdemo binary into bin/.
func (Build) Demo() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/rtdemo", "./cmd/rtdemo"), withStream())
	return err
}

// NoGPU builds every package with the GPU backend compiled out.
func (Build) NoGPU() error {
	_, err := executeCmd("go", withArgs("build", "-tags", "nogpu", "./..."), withEnv("CGO_ENABLED=0"), withStream())
	return err
}

// Frame renders a single frame headless into frame.png.
func (Build) Frame() error {
	mg.Deps(Build.Demo)
	_, err := executeCmd("bin/rtdemo", withArgs("render", "--out", "frame.png"), withStream())
	return err
}
