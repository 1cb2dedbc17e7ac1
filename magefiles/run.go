//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the headless testbed.
func (Run) Testbed() error {
	mg.Deps(Build.Engine)
	fmt.Println("Run testbed...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the testbed with the given TOML configuration.
func (Run) Config(path string) error {
	if _, err := executeCmd("go", withArgs("run", "main.go", "-config", path), withStream()); err != nil {
		return err
	}
	return nil
}
