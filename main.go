// Package main is the entry point for the loupe CLI, a small operator tool
// on top of the loupe-go client library for inspecting the asynchronous
// batches of a Loupe search server.
package main

import (
	"os"

	"github.com/loupesearch/loupe-go/cli"
	"github.com/loupesearch/loupe-go/common"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		common.Logger.Error(err.Error())
		os.Exit(1)
	}
}
