package main

import "github.com/gaurav-prasanna/gtmkit/cmd"

func main() {
	cmd.Execute()
}
