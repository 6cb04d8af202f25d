package main

import (
	"fmt"
	"os"

	"github.com/sage-kit/sage/cmd/sage/cmd"
)

func main() {
	var err error
	if exe, exeErr := os.Executable(); exeErr == nil && cmd.IsUninstaller(exe) {
		err = cmd.ExecuteUninstaller(exe)
	} else {
		err = cmd.Execute()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
