package main

import "medledger/cmd/medledger-cli/cmd"

func main() {
	cmd.Execute()
}
