package main

import (
	"context"
	"errors"
	"os"
)

func main() {
	if err := execute(context.Background(), newRootCmd()); err != nil {
		// The result was already printed as JSON.
		if errors.Is(err, errReported) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
