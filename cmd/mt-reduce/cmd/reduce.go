package cmd

import (
	"context"
	"net/http"

	"github.com/grafana/metricreduce/pkg/aggregation"
	"github.com/grafana/metricreduce/pkg/api/response"
	"github.com/grafana/metricreduce/pkg/reduce"
	"github.com/grafana/metricreduce/pkg/render"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var output string

var reduceCmd = &cobra.Command{
	Use:   "reduce",
	Short: "Reduce the partials of a TOML file and print the rendered results",
	Long: `Reduce the partials of a TOML file and print the rendered results.

Partials are grouped by kind and name. Every group is reduced into one
result, and the results are printed as one document keyed by name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := loadPartials(input)
		if err != nil {
			return err
		}
		groups, err := groupPartials(results)
		if err != nil {
			return err
		}
		log.Infof("reducing %d partials in %d groups", len(results), len(groups))

		ctx, cancel := reduce.CliConfig.Context(context.Background())
		defer cancel()
		engine := reduce.NewEngine(reduce.CliConfig.Concurrency)
		reduced, err := engine.ReduceAll(ctx, groups)
		if err != nil {
			return err
		}
		return writeResults(reduced...)
	},
}

func writeResults(results ...aggregation.Result) error {
	renderables := make([]render.Renderable, len(results))
	for i, r := range results {
		renderables[i] = r
	}
	resp, err := response.New(output, http.StatusOK, render.RenderNamed(renderables...))
	if err != nil {
		return err
	}
	_, isJson := resp.(*response.Json)
	if err := response.Write(out, resp); err != nil {
		return err
	}
	if isJson {
		_, err = out.Write([]byte{'\n'})
	}
	return err
}

func init() {
	rootCmd.AddCommand(reduceCmd)
	reduceCmd.Flags().StringVarP(&input, "input", "i", "", "TOML file with the partials")
	reduceCmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json|msgpack")
	reduceCmd.MarkFlagRequired("input")
}
