package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/grafana/metricreduce/pkg/codec"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the wire form of the partials of a TOML file, one hex payload per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := loadPartials(input)
		if err != nil {
			return err
		}
		for _, r := range results {
			b, err := codec.Encode(r)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hex.EncodeToString(b))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVarP(&input, "input", "i", "", "TOML file with the partials")
	encodeCmd.MarkFlagRequired("input")
}
