package main

import (
	"os"
	"runtime/debug"

	"github.com/mezonai/ethash/cmd"
	"github.com/mezonai/ethash/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("ETHASH CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
