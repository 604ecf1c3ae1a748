package main

import "github.com/pathakanu/inboxpilot/cmd"

func main() {
	cmd.Execute()
}
