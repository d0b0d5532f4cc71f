package main

import "github.com/chainlab-dev/chainlab/cmd"

func main() {
	cmd.Execute()
}
