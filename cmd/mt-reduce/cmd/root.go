// Copyright © 2018 Grafana Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grafana/globalconf"
	"github.com/grafana/metricreduce/pkg/api/response"
	"github.com/grafana/metricreduce/pkg/format"
	"github.com/grafana/metricreduce/pkg/logger"
	"github.com/grafana/metricreduce/pkg/reduce"
	"github.com/grafana/metricreduce/pkg/stats"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mt-reduce",
	Short: "Reduces, encodes and decodes partial metric aggregation results",
	Long: `mt-reduce merges the partial aggregation results of several shards the
way a coordinating node does, and converts them to and from their wire form.

Package settings (the [reduce] and [format] sections) are read from the
ini file given by --conf, and can be overridden by MR_<SECTION>_<SETTING>
environment variables, e.g. MR_REDUCE_CONCURRENCY=4.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("stats") {
			if err := stats.WriteTo(os.Stderr, viper.GetString("stats-prefix"), time.Now()); err != nil {
				log.Errorf("failed to write stats: %s", err)
			}
		}
	},
}

// out is where commands write their results.
var out io.Writer = os.Stdout

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(os.Stderr, err))
	}
}

// reportError prints err with the status a server would answer it with,
// and returns the exit code: 2 for bad input, 1 otherwise.
func reportError(w io.Writer, err error) int {
	resp := response.WrapError(err)
	fmt.Fprintf(w, "Error: %s (status %d)\n", resp.Error(), resp.Code())
	if resp.Code() >= 400 && resp.Code() < 500 {
		return 2
	}
	return 1
}

var (
	// config params used by >1 subcommands are listed here
	// config params specific to only 1 command, go in the file for that command
	cfgFile  string
	confFile string
	input    string
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file for the command line settings (default is $HOME/.mt-reduce.yaml)")
	rootCmd.PersistentFlags().StringVar(&confFile, "conf", "/etc/metricreduce/metricreduce.ini", "ini file with the reduce and format package settings. ignored if it does not exist")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: panic|fatal|error|warn|info|debug|trace")
	rootCmd.PersistentFlags().Bool("stats", false, "print internal stats in graphite line format to stderr when done")
	rootCmd.PersistentFlags().String("stats-prefix", "metricreduce.stats", "prefix for the stats printed with --stats")

	for _, name := range []string{"log-level", "stats", "stats-prefix"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".mt-reduce" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".mt-reduce")
	}

	viper.SetEnvPrefix("mt_reduce")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

var packageConfigDone bool

// setup configures logging and the package settings. It runs before every
// subcommand.
func setup(cmd *cobra.Command, args []string) error {
	if err := logger.Setup(os.Stderr, viper.GetString("log-level"), "mt-reduce"); err != nil {
		return fmt.Errorf("invalid log-level: %w", err)
	}
	if packageConfigDone {
		return nil
	}

	// Only try and parse the conf file if it exists
	path := ""
	if _, err := os.Stat(confFile); err == nil {
		path = confFile
	}
	conf, err := globalconf.NewWithOptions(&globalconf.Options{
		Filename:  path,
		EnvPrefix: "MR_",
	})
	if err != nil {
		return fmt.Errorf("configuration file error: %w", err)
	}

	reduce.ConfigSetup()
	format.ConfigSetup()

	conf.ParseAll()

	reduce.ConfigProcess()
	format.ConfigProcess()

	packageConfigDone = true
	log.Debugf("using %d reduce workers, decimal pattern cache of %d", reduce.CliConfig.Concurrency, format.CliConfig.PatternCacheSize)
	return nil
}
