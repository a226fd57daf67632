package main

import "github.com/opalhq/walletd/cmd"

func main() {
	cmd.Execute()
}
