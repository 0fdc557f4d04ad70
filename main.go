package main

import "github.com/zinc-sig/tandem/cmd"

func main() {
	cmd.Execute()
}
