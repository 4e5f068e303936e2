package main

import (
	cmd "github.com/kerbaras/mdex/cmd/mdex"
)

func main() {
	cmd.Execute()
}
