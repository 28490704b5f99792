// Command pocketflow is the terminal client for the PocketFlow record API.
package main

import (
	"fmt"
	"os"
)

func main() {
	app, err := newApp(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pocketflow:", err)
		os.Exit(1)
	}
	if err := app.registry().Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pocketflow:", err)
		os.Exit(1)
	}
}
