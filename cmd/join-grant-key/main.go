// Package main provides a one-shot utility for join-grant key generation.
//
// It emits the asymmetric keypair used to sign membership join grants.
package main

import (
	"os"

	"github.com/rulebookhq/rulebook/internal/platform/config"
	"github.com/rulebookhq/rulebook/internal/tools/joingrant"
)

func main() {
	if err := joingrant.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate join grant key: %v", err)
	}
}
