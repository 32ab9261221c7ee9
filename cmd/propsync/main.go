// Command propsync manages property listings, favorites and listing chats
// against a local cache and an optional remote store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/propsync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands report ExitErrors through their formatter; anything else
		// (unknown command, bad flag, wrong arg count) is reported here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
