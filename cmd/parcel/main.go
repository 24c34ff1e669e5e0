// Command parcel packs and unpacks tar, zip, jar, gzip and .Z files.
package main

import (
	"os"

	"github.com/meigma/parcel/cmd/parcel/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
