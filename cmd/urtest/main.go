// urtest runs URScript tests on a Universal Robots controller.
package main

import (
	"os"

	"github.com/getmockd/urtest/pkg/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
