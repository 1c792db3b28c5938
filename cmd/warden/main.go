package main

import "github.com/wardenhq/warden/cmd/warden/cmd"

func main() {
	cmd.Execute()
}
