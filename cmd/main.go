package main

import (
	"github.com/varnishstat-agent/cmd/agent"
)

func main() {
	agent.Execute()
}
