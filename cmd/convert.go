// Copyright (c) 2020 Mercari, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"go.mercari.io/schemanorm/config"
	"go.mercari.io/schemanorm/loader"
	"go.mercari.io/schemanorm/normalize"
)

type convertArgs struct {
	outputOpts

	Dialect       string
	DefaultSchema string
	ConfigFile    string
}

var (
	convertOpts = convertArgs{}
	convertCmd  = &cobra.Command{
		Use:   "convert FILE",
		Short: "convert normalizes a SQL script into a JSON document.",
		Args:  cobra.ExactArgs(1),
		Example: `  # Convert a PostgreSQL dump
  schemanorm convert schema.sql --dialect postgres --indent

  # Convert a T-SQL script with settings from a config file
  schemanorm convert schema.sql --config schemanorm.yml -o schema.json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mergeConfig(cmd, &convertOpts); err != nil {
				return err
			}
			if convertOpts.Dialect == "" {
				return fmt.Errorf("must specify --dialect, one of %v", normalize.Dialects())
			}

			logger.Debug("converting",
				slog.String("file", args[0]),
				slog.String("dialect", convertOpts.Dialect),
			)
			doc, err := loader.LoadFile(args[0], convertOpts.Dialect, normalize.Options{DefaultSchema: convertOpts.DefaultSchema})
			if err != nil {
				var nerr *normalize.Error
				if errors.As(err, &nerr) {
					return fmt.Errorf("%s:%w", args[0], err)
				}
				return fmt.Errorf("error: %v", err)
			}
			doc = loader.Filter(doc, convertOpts.IgnoreTables, convertOpts.IgnoreFields)

			return writeDocument(cmd.OutOrStdout(), &convertOpts.outputOpts, doc)
		},
	}
)

func init() {
	setConvertFlags(convertCmd, &convertOpts)
	rootCmd.AddCommand(convertCmd)
}

func setConvertFlags(cmd *cobra.Command, opts *convertArgs) {
	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "input dialect (mssql, oracle, postgres, spanner)")
	cmd.Flags().StringVar(&opts.DefaultSchema, "default-schema", "", "schema an unqualified name belongs to")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "YAML config file")
	setOutputOpts(cmd, &opts.outputOpts)
}

// mergeConfig fills the options left unset on the command line from the
// config file.
func mergeConfig(cmd *cobra.Command, opts *convertArgs) error {
	if opts.ConfigFile == "" {
		return nil
	}
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config failed: %v", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("dialect") {
		opts.Dialect = cfg.Dialect
	}
	if !flags.Changed("default-schema") {
		opts.DefaultSchema = cfg.DefaultSchema
	}
	if !flags.Changed("out") {
		opts.Out = cfg.Output
	}
	if !flags.Changed("indent") {
		opts.Indent = cfg.Indent
	}
	if !flags.Changed("ignore-tables") {
		opts.IgnoreTables = cfg.IgnoreTables
	}
	if !flags.Changed("ignore-fields") {
		opts.IgnoreFields = cfg.IgnoreFields
	}
	return nil
}
