package main

import "qapi/cmd"

func main() {
	cmd.Execute()
}
