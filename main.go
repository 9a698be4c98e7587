package main

import "github.com/neo/personasim/cmd"

func main() {
	cmd.Execute()
}
