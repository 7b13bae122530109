/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/racestore/cmd"

func main() {
	cmd.Execute()
}
