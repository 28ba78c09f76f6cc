package main

import "github.com/jason-green-io/papyri/internal/cmd"

func main() {
	cmd.Execute()
}
