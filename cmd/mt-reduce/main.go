package main

import "github.com/grafana/metricreduce/cmd/mt-reduce/cmd"

func main() {
	cmd.Execute()
}
