/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/spindleaudio/spindle/cmd"

func main() {
	cmd.Execute()
}
