// Package main provides the entry point for the citeq CLI.
package main

import (
	"os"

	"github.com/citeq/citeq/cmd/citeq/cmd"
	citeqerrors "github.com/citeq/citeq/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if citeqerrors.GetCode(err) == citeqerrors.ErrCodeConfigInvalid {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
