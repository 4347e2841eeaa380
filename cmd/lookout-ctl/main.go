package main

import "github.com/oshokin/lookout-monitor/cmd/lookout-ctl/cmd"

func main() {
	cmd.Execute()
}
