package main

import (
	"github.com/Paintersrp/runproc/internal/cli"
	"github.com/Paintersrp/runproc/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
