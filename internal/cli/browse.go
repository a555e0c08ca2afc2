package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/starcube/internal/cube"
	"github.com/roach88/starcube/internal/star"
)

// AggregateOptions holds flags for the aggregate command.
type AggregateOptions struct {
	QueryOptions
	Drilldown []string
	Measures  []string
	Page      int
	PageSize  int
}

// AggregateOutput is the JSON payload of the aggregate command.
type AggregateOutput struct {
	Summary        map[string]any      `json:"summary"`
	Cells          []map[string]any    `json:"cells,omitempty"`
	TotalCellCount int                 `json:"total_cell_count"`
	Levels         map[string][]string `json:"levels,omitempty"`
	StatementID    string              `json:"statement_id"`
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AggregateOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "aggregate <model>",
		Short: "Aggregate measures of a cell",
		Long: `Compute the summary of a cell and, with --drilldown, one row per member of
the drilled levels.

Examples:
  starcube aggregate sales.cue --db sales.db
  starcube aggregate sales.cue --db sales.db --cut "date:2012" --drilldown date
  starcube aggregate sales.cue --db warehouse.duckdb --driver duckdb --drilldown product:category`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, &opts.QueryOptions, true)
	cmd.Flags().StringArrayVar(&opts.Drilldown, "drilldown", nil, `drilldown spec "dimension[@hierarchy][:level]" (repeatable)`)
	cmd.Flags().StringSliceVar(&opts.Measures, "measure", nil, "measures to aggregate (default: all)")
	cmd.Flags().IntVar(&opts.Page, "page", 0, "cell page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "cells per page (0: no paging)")

	return cmd
}

func runAggregate(opts *AggregateOptions, modelPath string, cmd *cobra.Command) error {
	s, err := openSession(&opts.QueryOptions, modelPath, true, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	drilldown, err := cube.ParseDrilldowns(opts.Drilldown)
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error())
	}

	result, err := s.browser.Aggregate(commandContext(cmd), s.cell, star.AggregateRequest{
		Measures:  opts.Measures,
		Drilldown: drilldown,
		Page:      opts.Page,
		PageSize:  opts.PageSize,
	})
	if err != nil {
		return s.queryFailed(err)
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(AggregateOutput{
			Summary:        result.Summary,
			Cells:          result.Cells,
			TotalCellCount: result.TotalCellCount,
			Levels:         result.Levels,
			StatementID:    result.StatementID,
		})
	}

	w := s.formatter.Writer
	keys := make([]string, 0, len(result.Summary))
	for k := range result.Summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %v\n", k, result.Summary[k])
	}
	if result.Cells != nil {
		fmt.Fprintf(w, "\n%d of %d cell(s)\n", len(result.Cells), result.TotalCellCount)
		writeTable(w, result.Cells)
	}
	return nil
}

// MembersOptions holds flags for the members command.
type MembersOptions struct {
	QueryOptions
	Dimension string
	Depth     int
}

// NewMembersCommand creates the members command.
func NewMembersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MembersOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "members <model>",
		Short: "List dimension members within a cell",
		Args:  cobra.ExactArgs(1),
		Long: `List the distinct members of a dimension's hierarchy levels that have facts
in the cell. --depth limits the levels (default: all).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMembers(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, &opts.QueryOptions, true)
	cmd.Flags().StringVar(&opts.Dimension, "dimension", "", "dimension name")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "number of hierarchy levels (0: all)")
	_ = cmd.MarkFlagRequired("dimension")

	return cmd
}

func runMembers(opts *MembersOptions, modelPath string, cmd *cobra.Command) error {
	s, err := openSession(&opts.QueryOptions, modelPath, true, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.browser.Members(commandContext(cmd), s.cell, opts.Dimension, opts.Depth)
	if err != nil {
		return s.queryFailed(err)
	}
	return s.formatter.Rows(rows)
}

// NewFactCommand creates the fact command.
func NewFactCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "fact <model> <key>",
		Short:         "Show one denormalized fact",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFact(opts, args[0], args[1], cmd)
		},
	}

	addQueryFlags(cmd, opts, true)
	return cmd
}

func runFact(opts *QueryOptions, modelPath, key string, cmd *cobra.Command) error {
	s, err := openSession(opts, modelPath, true, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	row, err := s.browser.Fact(commandContext(cmd), parseKey(key))
	if err != nil {
		return s.queryFailed(err)
	}
	if row == nil {
		return s.formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no fact with key %s", key))
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(row)
	}
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(s.formatter.Writer, "%s: %v\n", k, row[k])
	}
	return nil
}

// FactsOptions holds flags for the facts command.
type FactsOptions struct {
	QueryOptions
	Page     int
	PageSize int
}

// NewFactsCommand creates the facts command.
func NewFactsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FactsOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:           "facts <model>",
		Short:         "List denormalized facts of a cell",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFacts(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, &opts.QueryOptions, true)
	cmd.Flags().IntVar(&opts.Page, "page", 0, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "facts per page (0: all)")
	return cmd
}

func runFacts(opts *FactsOptions, modelPath string, cmd *cobra.Command) error {
	s, err := openSession(&opts.QueryOptions, modelPath, true, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.browser.Facts(commandContext(cmd), s.cell, opts.Page, opts.PageSize)
	if err != nil {
		return s.queryFailed(err)
	}
	return s.formatter.Rows(rows)
}

// NewDetailsCommand creates the details command.
func NewDetailsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "details <model>",
		Short: "Describe the members on the paths of point cuts",
		Long: `For every point cut of --cut, print each level's attributes with the level
key (_key) and label (_label). Other cut types print nothing.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetails(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, opts, true)
	_ = cmd.MarkFlagRequired("cut")
	return cmd
}

func runDetails(opts *QueryOptions, modelPath string, cmd *cobra.Command) error {
	s, err := openSession(opts, modelPath, true, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	details, err := s.browser.CellDetails(commandContext(cmd), s.cell)
	if err != nil {
		return s.queryFailed(err)
	}

	if s.formatter.Format == "json" {
		return s.formatter.Success(details)
	}
	for i, cut := range s.cell.Cuts() {
		fmt.Fprintf(s.formatter.Writer, "%s\n", cube.FormatCut(cut))
		writeTable(s.formatter.Writer, details[i])
	}
	return nil
}

// commandContext returns the command's context or a background context
// when the command runs without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
