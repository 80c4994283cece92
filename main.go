package main

import "github.com/metal-toolbox/kubam/cmd"

func main() {
	cmd.Execute()
}
