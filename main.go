package main

import "github.com/KaramelBytes/odap/cmd"

func main() {
	cmd.Execute()
}
