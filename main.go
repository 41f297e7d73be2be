package main

import "github.com/cfsage/memoria/cmd"

func main() {
	cmd.Execute()
}
