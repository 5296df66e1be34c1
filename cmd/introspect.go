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
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/spanner"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"go.mercari.io/schemanorm/loader"
)

type introspectArgs struct {
	outputOpts

	Driver string
	DSN    string
	Schema string
}

var (
	introspectOpts = introspectArgs{}
	introspectCmd  = &cobra.Command{
		Use:   "introspect",
		Short: "introspect reads the schema of a live database into a JSON document.",
		Args:  cobra.NoArgs,
		Example: `  # Read a Spanner database
  schemanorm introspect --driver spanner --dsn projects/$PROJECT/instances/$INSTANCE/databases/$DATABASE

  # Read the "app" schema of a PostgreSQL database
  schemanorm introspect --driver postgres --dsn postgres://localhost/db --schema app
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			source, closeFn, err := openSource(ctx, &introspectOpts)
			if err != nil {
				return fmt.Errorf("error: %v", err)
			}
			defer closeFn()

			logger.Debug("introspecting", slog.String("driver", introspectOpts.Driver))
			l := loader.New(source, loader.Option{
				IgnoreFields: introspectOpts.IgnoreFields,
				IgnoreTables: introspectOpts.IgnoreTables,
			})
			doc, err := l.LoadSchema(ctx)
			if err != nil {
				return fmt.Errorf("error: %v", err)
			}

			return writeDocument(cmd.OutOrStdout(), &introspectOpts.outputOpts, doc)
		},
	}
)

func init() {
	introspectCmd.Flags().StringVar(&introspectOpts.Driver, "driver", "", "database driver (spanner, postgres, mssql)")
	introspectCmd.Flags().StringVar(&introspectOpts.DSN, "dsn", "", "database name or connection string")
	introspectCmd.Flags().StringVar(&introspectOpts.Schema, "schema", "", "schema to read (postgres only, default public)")
	setOutputOpts(introspectCmd, &introspectOpts.outputOpts)
	_ = introspectCmd.MarkFlagRequired("driver")
	_ = introspectCmd.MarkFlagRequired("dsn")
	rootCmd.AddCommand(introspectCmd)
}

// openSource connects to the database and returns its SchemaSource with a
// function releasing the connection.
func openSource(ctx context.Context, args *introspectArgs) (loader.SchemaSource, func(), error) {
	switch args.Driver {
	case "spanner":
		client, err := spanner.NewClient(ctx, args.DSN)
		if err != nil {
			return nil, nil, err
		}
		return loader.NewSpannerSource(client), client.Close, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, args.DSN)
		if err != nil {
			return nil, nil, err
		}
		return loader.NewPostgresSource(pool, args.Schema), pool.Close, nil
	case "mssql":
		db, err := loader.OpenSQLServer(ctx, args.DSN)
		if err != nil {
			return nil, nil, err
		}
		return loader.NewSQLServerSource(db), func() { db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown driver %q", args.Driver)
}
