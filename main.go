package main

import "clubctl/cmd"

func main() {
	cmd.Execute()
}
