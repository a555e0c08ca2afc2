package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/starcube/internal/cube"
	"github.com/roach88/starcube/internal/queryir"
	"github.com/roach88/starcube/internal/querysql"
	"github.com/roach88/starcube/internal/star"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	QueryOptions
	Drilldown     []string
	Measures      []string
	Page          int
	PageSize      int
	Denormalized  bool
	ExpandLocales bool
}

// StatementOutput is one compiled statement.
type StatementOutput struct {
	Kind   string `json:"kind"` // "summary", "cells", "count" or "denormalized"
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
	ID     string `json:"id"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "sql <model>",
		Short: "Print the SQL of an aggregation",
		Long: `Plan an aggregation without running it and print its statements: the
summary, the drilldown cells and, when paged, the cell count.

With --denormalized, print the statement joining the fact table with every
dimension attribute instead.

Examples:
  starcube sql sales.cue --cut "date:2012" --drilldown date
  starcube sql sales.cue --drilldown "date@ywd:week" --page 0 --page-size 10
  starcube sql sales.cue --denormalized --expand-locales`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, &opts.QueryOptions, false)
	cmd.Flags().StringArrayVar(&opts.Drilldown, "drilldown", nil, `drilldown spec "dimension[@hierarchy][:level]" (repeatable)`)
	cmd.Flags().StringSliceVar(&opts.Measures, "measure", nil, "measures to aggregate (default: all)")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "cell page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "cells per page (0: no paging)")
	cmd.Flags().BoolVar(&opts.Denormalized, "denormalized", false, "print the denormalized statement")
	cmd.Flags().BoolVar(&opts.ExpandLocales, "expand-locales", false, "with --denormalized, one column per locale of localized attributes")

	return cmd
}

func runSQL(opts *SQLOptions, modelPath string, cmd *cobra.Command) error {
	s, err := openSession(&opts.QueryOptions, modelPath, false, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	type planned struct {
		kind string
		q    queryir.Query
	}
	var queries []planned

	if opts.Denormalized {
		sel := s.browser.Context().DenormalizedStatement(opts.ExpandLocales)
		if len(s.cell.Cuts()) > 0 {
			cond, _, err := s.browser.Context().Condition(s.cell)
			if err != nil {
				return s.queryFailed(err)
			}
			sel.Filter = cond
		}
		queries = append(queries, planned{"denormalized", sel})
	} else {
		drilldown, err := cube.ParseDrilldowns(opts.Drilldown)
		if err != nil {
			return s.formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error())
		}
		plan, err := s.browser.PlanAggregate(s.cell, star.AggregateRequest{
			Measures:  opts.Measures,
			Drilldown: drilldown,
			Page:      opts.Page,
			PageSize:  opts.PageSize,
		})
		if err != nil {
			return s.queryFailed(err)
		}
		queries = append(queries, planned{"summary", plan.Summary})
		if plan.Cells != nil {
			queries = append(queries, planned{"cells", plan.Cells})
		}
		if plan.Count != nil {
			queries = append(queries, planned{"count", plan.Count})
		}
	}

	compiler := querysql.NewSQLCompiler()
	out := make([]StatementOutput, 0, len(queries))
	for _, p := range queries {
		stmt, err := compiler.CompileStatement(p.q)
		if err != nil {
			return s.formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error())
		}
		params, err := stmt.Args()
		if err != nil {
			return s.formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error())
		}
		id, err := stmt.ID()
		if err != nil {
			return s.formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error())
		}
		out = append(out, StatementOutput{Kind: p.kind, SQL: stmt.SQL, Params: params, ID: id})
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(out)
	}
	for _, o := range out {
		fmt.Fprintf(s.formatter.Writer, "-- %s\n%s;\n", o.Kind, o.SQL)
		if len(o.Params) > 0 {
			fmt.Fprintf(s.formatter.Writer, "-- params: %v\n", o.Params)
		}
		fmt.Fprintln(s.formatter.Writer)
	}
	return nil
}
