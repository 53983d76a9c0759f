package main

import "github.com/nfrund/refbot/cmd/refbot/cmd"

func main() {
	cmd.Execute()
}
