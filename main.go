package main

import "github.com/KaramelBytes/healthlens-cli/cmd"

func main() {
	cmd.Execute()
}
