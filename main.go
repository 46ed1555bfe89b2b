package main

import "github.com/neoromantic/telegram-sync-cli/cmd"

func main() {
	cmd.Execute()
}
