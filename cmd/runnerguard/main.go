package main

import "github.com/runnerguard/runnerguard/internal/cli"

func main() {
	cli.Execute()
}
