package main

import "github.com/nethalo/pg-rebuild-table/cmd"

func main() {
	cmd.Execute()
}
