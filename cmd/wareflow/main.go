// Command wareflow runs the adaptive warehouse scheduling pipeline.
package main

import (
	"context"
	"os"

	"github.com/vnykmshr/wareflow/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
