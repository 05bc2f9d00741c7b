/*
Copyright © 2021 the Heliocat authors.
This file is part of Heliocat.

Heliocat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Heliocat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Heliocat.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package heliocatutil wires the heliocat library into the heliocat
// command-line tool: configuration handling, provider construction, and
// the command tree.
package heliocatutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spacephys/heliocat"
	"github.com/spacephys/heliocat/providers/amda"
	"github.com/spacephys/heliocat/providers/httpindex"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to heliocat.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "provider",
			usage: `
              provider selects the data provider: 'amda' for the AMDA
              REST services, or 'pds' for an HTML-index archive.`,
			shorthand:  "p",
			defaultVal: "amda",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "entrypoint",
			usage: `
              entrypoint overrides the provider's service entry point or
              index root URL.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "cachedir",
			usage: `
              cachedir is a directory where downloaded payloads are
              cached across sessions. If empty, payloads are only cached
              in memory for the length of the session.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "verbose",
			usage: `
              verbose enables debug logging, including retrieval stage
              transitions and job polling.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "timeout",
			usage: `
              timeout bounds each retrieval, e.g. '5m'. Zero means no
              limit.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "start",
			usage: `
              start is the beginning of the requested time range in ISO
              format (e.g. 2010-01-01T00:00:00). If start and stop are
              both empty, the first day of the dataset's coverage is
              retrieved.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fetchCmd.Flags(), derivedFetchCmd.Flags()},
		},
		{
			name: "stop",
			usage: `
              stop is the end of the requested time range in ISO format.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fetchCmd.Flags(), derivedFetchCmd.Flags()},
		},
		{
			name: "sampling",
			usage: `
              sampling resamples the retrieved data to the given period,
              e.g. '1h'. Zero keeps the native sampling.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fetchCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is where the retrieved table is written as CSV:
              a local path, or a 'file://', 'gs://', or 's3://' blob
              location. Empty writes to standard output.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{fetchCmd.Flags(), derivedFetchCmd.Flags()},
		},
		{
			name: "mission",
			usage: `
              mission restricts the dataset listing to one mission id.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{datasetsCmd.Flags()},
		},
		{
			name: "instrument",
			usage: `
              instrument restricts the dataset listing to one instrument
              id.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{datasetsCmd.Flags()},
		},
		{
			name: "userid",
			usage: `
              userid is the provider account used for derived-parameter
              access.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{derivedCmd.PersistentFlags()},
		},
		{
			name: "password",
			usage: `
              password is the provider account password. Prefer setting
              it through the HELIOCAT_password environment variable.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{derivedCmd.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("HELIOCAT")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(aliveCmd)
	Root.AddCommand(missionsCmd)
	Root.AddCommand(instrumentsCmd)
	Root.AddCommand(datasetsCmd)
	Root.AddCommand(fetchCmd)
	Root.AddCommand(derivedCmd)
	derivedCmd.AddCommand(derivedListCmd)
	derivedCmd.AddCommand(derivedFetchCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("heliocat: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "heliocat",
	Short: "A client for heliophysics time-series data providers.",
	Long: `Heliocat retrieves time-series datasets from heliophysics data
providers such as AMDA. Use the subcommands specified below to navigate a
provider's catalog and download data.

Configuration can be changed by using a configuration file (and providing
the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format
'HELIOCAT_var' where 'var' is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration
information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of heliocat.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("heliocat v%s\n", heliocat.Version)
	},
	DisableAutoGenTag: true,
}

var aliveCmd = &cobra.Command{
	Use:   "alive",
	Short: "Check whether the provider services respond.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		client, err := NewClient()
		if err != nil {
			return err
		}
		type aliveChecker interface {
			IsAlive(context.Context) (bool, error)
		}
		ac, ok := client.Provider().(aliveChecker)
		if !ok {
			return fmt.Errorf("heliocat: provider %s has no liveness probe", client.Provider().Name())
		}
		alive, err := ac.IsAlive(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("%s alive: %v\n", client.Provider().Name(), alive)
		return nil
	},
	DisableAutoGenTag: true,
}

var missionsCmd = &cobra.Command{
	Use:   "missions",
	Short: "List the provider's missions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		client, err := NewClient()
		if err != nil {
			return err
		}
		missions, err := client.Catalog().Missions(ctx)
		if err != nil {
			return err
		}
		for _, m := range missions {
			cmd.Printf("%s\t%s\n", m.ID, m.Name)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var instrumentsCmd = &cobra.Command{
	Use:   "instruments [mission id]",
	Short: "List the instruments of a mission.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		client, err := NewClient()
		if err != nil {
			return err
		}
		instruments, err := client.Catalog().Instruments(ctx, args[0])
		if err != nil {
			return err
		}
		for _, in := range instruments {
			cmd.Printf("%s\t%s\n", in.ID, in.Name)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List dataset descriptors, optionally filtered by mission and instrument.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		client, err := NewClient()
		if err != nil {
			return err
		}
		iter, err := client.Catalog().Datasets(ctx, Cfg.GetString("mission"), Cfg.GetString("instrument"))
		if err != nil {
			return err
		}
		for d := iter.Next(); d != nil; d = iter.Next() {
			cmd.Printf("%s\t%s\t%d parameters\n", d.ID, d.Name, len(d.Parameters))
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [dataset or parameter id]",
	Short: "Download a dataset or parameter and write it as CSV.",
	Long: `fetch resolves the given identifier in the provider catalog,
downloads its values over the requested time range, and writes the
resulting table as CSV. Dataset identifiers produce one column per
parameter component; parameter identifiers produce only that parameter's
columns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		client, err := NewClient()
		if err != nil {
			return err
		}
		r, err := configTimeRange()
		if err != nil {
			return err
		}

		var table *heliocat.Table
		if _, err := client.Catalog().FindDataset(ctx, args[0]); err == nil {
			series, err := client.GetDataset(ctx, args[0], r)
			if err != nil {
				return err
			}
			series, err = resampleIfRequested(series)
			if err != nil {
				return err
			}
			table = series.Table
		} else {
			series, err := client.GetParameter(ctx, args[0], r)
			if err != nil {
				return err
			}
			table = series.Table
		}
		return writeOutput(ctx, Cfg.GetString("output"), table)
	},
	DisableAutoGenTag: true,
}

var derivedCmd = &cobra.Command{
	Use:   "derived",
	Short: "Access a user's derived parameters.",
	Long: `derived accesses parameters computed and stored server-side in a
user's private workspace. All subcommands authenticate with the
configured userid and password.`,
	DisableAutoGenTag: true,
}

var derivedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the user's derived parameters.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		session, err := NewSession()
		if err != nil {
			return err
		}
		derived, err := session.ListDerived(ctx)
		if err != nil {
			return err
		}
		for _, d := range derived {
			cmd.Printf("%s\t%s\t%v\n", d.ID, d.Name, d.Timestep)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var derivedFetchCmd = &cobra.Command{
	Use:   "fetch [derived parameter id]",
	Short: "Download a derived parameter and write it as CSV.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		session, err := NewSession()
		if err != nil {
			return err
		}
		r, err := configTimeRange()
		if err != nil {
			return err
		}
		if r.IsZero() {
			return fmt.Errorf("heliocat: derived fetch requires --start and --stop")
		}
		table, err := session.FetchDerived(ctx, args[0], r)
		if err != nil {
			return err
		}
		return writeOutput(ctx, Cfg.GetString("output"), table)
	},
	DisableAutoGenTag: true,
}

// NewClient builds a client for the configured provider.
func NewClient() (*heliocat.Client, error) {
	p, log, err := newProvider()
	if err != nil {
		return nil, err
	}
	return heliocat.New(p, &heliocat.Config{
		DiskCachePath: Cfg.GetString("cachedir"),
		Log:           log,
	}), nil
}

// NewSession builds an authenticated session for the configured provider
// and account.
func NewSession() (*heliocat.Session, error) {
	p, log, err := newProvider()
	if err != nil {
		return nil, err
	}
	dp, ok := p.(heliocat.DerivedProvider)
	if !ok {
		return nil, fmt.Errorf("heliocat: provider %s does not serve derived parameters", p.Name())
	}
	creds := heliocat.Credentials{
		UserID:   Cfg.GetString("userid"),
		Password: Cfg.GetString("password"),
	}
	if creds.UserID == "" {
		return nil, fmt.Errorf("heliocat: derived-parameter access requires a userid")
	}
	return heliocat.NewSession(dp, creds, log), nil
}

func newProvider() (heliocat.Provider, *logrus.Logger, error) {
	log := logrus.New()
	if Cfg.GetBool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}
	switch name := strings.ToLower(Cfg.GetString("provider")); name {
	case "amda":
		return amda.New(&amda.Config{
			EntryPoint: Cfg.GetString("entrypoint"),
			Log:        log,
		}), log, nil
	case "pds", "httpindex":
		return httpindex.New(&httpindex.Config{
			Root: Cfg.GetString("entrypoint"),
			Log:  log,
		}), log, nil
	default:
		return nil, nil, fmt.Errorf("heliocat: unknown provider %q", name)
	}
}

// requestContext returns a context honoring the configured timeout.
func requestContext() (context.Context, context.CancelFunc) {
	if d := configDuration("timeout"); d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}

// configTimeRange builds the requested time range from the start and stop
// options. Both empty yields a zero range, which requests the dataset's
// first day of coverage.
func configTimeRange() (heliocat.TimeRange, error) {
	startStr, stopStr := Cfg.GetString("start"), Cfg.GetString("stop")
	if startStr == "" && stopStr == "" {
		return heliocat.TimeRange{}, nil
	}
	start, err := cast.ToTimeE(startStr)
	if err != nil {
		return heliocat.TimeRange{}, fmt.Errorf("heliocat: bad start time %q: %v", startStr, err)
	}
	stop, err := cast.ToTimeE(stopStr)
	if err != nil {
		return heliocat.TimeRange{}, fmt.Errorf("heliocat: bad stop time %q: %v", stopStr, err)
	}
	return heliocat.NewTimeRange(start, stop)
}

func configDuration(name string) time.Duration {
	s := Cfg.GetString(name)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heliocat: ignoring bad %s %q: %v\n", name, s, err)
		return 0
	}
	return d
}

func resampleIfRequested(series *heliocat.DatasetSeries) (*heliocat.DatasetSeries, error) {
	d := configDuration("sampling")
	if d == 0 {
		return series, nil
	}
	return series.Resample(d)
}
