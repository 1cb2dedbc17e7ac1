//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Tidies the module and compiles every package.
func (Build) Engine() error {
	if err := tidy(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

type Test mg.Namespace

// Runs the whole test suite.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the test suite with the race detector, the job pool and the fence
// gate are the interesting parts.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./engine/...", "./testbed/..."), withStream())
	return err
}
