package main

import "github.com/vongform/vongform/internal/cmd"

func main() {
	cmd.Execute()
}
