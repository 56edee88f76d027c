package main

import "athenalens/cmd"

func main() {
	cmd.Execute()
}
