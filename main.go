package main

import "github.com/payd-dev/payd/cmd"

func main() {
	cmd.Execute()
}
