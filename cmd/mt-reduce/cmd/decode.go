package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/grafana/metricreduce/pkg/codec"
	"github.com/grafana/metricreduce/pkg/reduce"
	"github.com/spf13/cobra"
)

var dump bool

var decodeCmd = &cobra.Command{
	Use:   "decode [hex payload]...",
	Short: "Decode hex payloads, reduce them and print the rendered result",
	Long: `Decode hex payloads, reduce them and print the rendered result.

Payloads are taken from the arguments, or read from stdin one per line if
there are none. All payloads must be partials of the same metric.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			var err error
			args, err = readLines(os.Stdin)
			if err != nil {
				return err
			}
		}
		payloads := make([][]byte, len(args))
		for i, a := range args {
			b, err := hex.DecodeString(strings.TrimSpace(a))
			if err != nil {
				return fmt.Errorf("payload %d: %w", i, err)
			}
			payloads[i] = b
		}

		if dump {
			for _, p := range payloads {
				r, err := codec.Decode(p)
				if err != nil {
					return err
				}
				spew.Fdump(out, r)
			}
		}

		engine := reduce.NewEngine(reduce.CliConfig.Concurrency)
		r, err := engine.ReduceEncoded(payloads, nil)
		if err != nil {
			return err
		}
		return writeResults(r)
	},
}

func readLines(f *os.File) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().BoolVar(&dump, "dump", false, "also dump the decoded partials")
	decodeCmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json|msgpack")
}
