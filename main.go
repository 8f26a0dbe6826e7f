/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/mbetts/melodiary/cmd"

func main() {
	cmd.Execute()
}
