package main

import "github.com/valerioTomassi/linefile/cmd"

func main() {
	cmd.Execute()
}
