package main

import "github.com/structfs/yamlfs/cmd"

func main() {
	cmd.Execute()
}
