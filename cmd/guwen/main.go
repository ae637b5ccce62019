// Command guwen is the command-line front end of the Guwen annotator.
package main

import (
	"os"

	"github.com/turtacn/Guwen-Annotator/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
