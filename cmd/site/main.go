package main

import (
	"context"
	"fmt"
	"os"

	"github.com/uluk20-22520/uluk-site/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(context.Background(), version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
