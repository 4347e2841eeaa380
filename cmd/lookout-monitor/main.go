package main

import "github.com/oshokin/lookout-monitor/cmd/lookout-monitor/cmd"

func main() {
	cmd.Execute()
}
