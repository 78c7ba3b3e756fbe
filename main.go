/*
Copyright 2023 Markus Papenbrock
*/
package main

import "github.com/mpapenbr/checkpoint-racer/cmd"

func main() {
	cmd.Execute()
}
