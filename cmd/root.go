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
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"go.mercari.io/schemanorm/models"

	// dialects register themselves with the normalize package
	_ "go.mercari.io/schemanorm/normalize/mssql"
	_ "go.mercari.io/schemanorm/normalize/oracle"
	_ "go.mercari.io/schemanorm/normalize/postgres"
	_ "go.mercari.io/schemanorm/normalize/spanner"
)

var version string

// outputOpts are the flags shared by the commands that print a document.
type outputOpts struct {
	Out          string
	Indent       bool
	IgnoreFields []string
	IgnoreTables []string
}

var (
	verbose bool
	logger  = slog.New(slog.NewTextHandler(os.Stderr, nil))

	rootCmd = &cobra.Command{
		Use:   "schemanorm",
		Short: "schemanorm converts SQL schemas of several dialects into one JSON document.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       versionInfo(),
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages to stderr")
}

func setOutputOpts(cmd *cobra.Command, opts *outputOpts) {
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file name (default stdout)")
	cmd.Flags().BoolVar(&opts.Indent, "indent", false, "pretty-print the JSON document")
	cmd.Flags().StringArrayVar(&opts.IgnoreFields, "ignore-fields", nil, "fields to exclude from the document")
	cmd.Flags().StringArrayVar(&opts.IgnoreTables, "ignore-tables", nil, "tables to exclude from the document")
}

// createFile opens the output file. Tests replace it.
var createFile = func(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// writeDocument encodes doc as JSON to the output file, or to w when no
// file is given. A failed close of the output file is an error.
func writeDocument(w io.Writer, opts *outputOpts, doc *models.Document) (err error) {
	if opts.Out != "" {
		f, cerr := createFile(opts.Out)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	enc := json.NewEncoder(w)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return err
	}

	logger.Debug("document written",
		slog.String("out", opts.Out),
		slog.Int("tables", len(doc.Tables)),
		slog.Int("refs", len(doc.Refs)),
		slog.Int("enums", len(doc.Enums)),
		slog.Int("records", len(doc.Records)),
	)
	return nil
}

func versionInfo() string {
	if version != "" {
		return version
	}

	// For those who "go install" schemanorm
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}
	return info.Main.Version
}
