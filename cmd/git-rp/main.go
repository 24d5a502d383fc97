package main

import (
	"context"
	"fmt"
	"os"

	"github.com/stree-tools/git-rp/internal/app"
)

func main() {
	cmd := app.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
