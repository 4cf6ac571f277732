package main

import "github.com/steveyegge/mergegate/internal/cmd"

func main() {
	cmd.Execute()
}
