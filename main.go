package main

import "github.com/israel2640/JARVIS-IA-LIGHT/cmd"

func main() {
	cmd.Execute()
}
