// Command s3cost-report builds ranked S3 storage cost reports from
// inventory data.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/s3-cost-report/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "s3cost-report:", err)
		os.Exit(1)
	}
}
