package main

import "flakemart/cmd"

func main() {
	cmd.Execute()
}
