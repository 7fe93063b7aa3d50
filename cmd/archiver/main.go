package main

import (
	"os"

	"github.com/antonio/obsidian-task-archiver/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
