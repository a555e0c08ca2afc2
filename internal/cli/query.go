package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/starcube/internal/cube"
	"github.com/roach88/starcube/internal/mapper"
	"github.com/roach88/starcube/internal/model"
	"github.com/roach88/starcube/internal/star"
	"github.com/roach88/starcube/internal/store"
)

var _ star.Executor = (*store.Store)(nil)

// QueryOptions holds the flags shared by the commands that browse a cube.
type QueryOptions struct {
	*RootOptions
	Cube   string // cube name, optional if the model has one cube
	Cut    string // cut string, e.g. "date:2012,3|product:1-5"
	Locale string
	Driver string // "sqlite3" | "duckdb"
	DB     string // data source name
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions, withDB bool) {
	cmd.Flags().StringVar(&opts.Cube, "cube", "", "cube name (default: the model's only cube)")
	cmd.Flags().StringVar(&opts.Cut, "cut", "", `cell cuts, e.g. "date:2012,3|product:1-5"`)
	cmd.Flags().StringVar(&opts.Locale, "locale", "", "locale of localized attributes (default: model, then system locale)")
	if withDB {
		cmd.Flags().StringVar(&opts.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|duckdb)")
		cmd.Flags().StringVar(&opts.DB, "db", "", "database path or DSN")
	}
}

// session is an opened model, browser and cell for one command.
type session struct {
	formatter *OutputFormatter
	model     *model.Model
	browser   *star.Browser
	cell      *cube.Cell
	store     *store.Store
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

// openSession loads the model, opens the database when withDB is set and
// builds the browser and the cell of --cut. Errors are written to the
// formatter and returned as ExitErrors.
func openSession(opts *QueryOptions, modelPath string, withDB bool, cmd *cobra.Command) (*session, error) {
	formatter := newFormatter(opts.RootOptions, cmd)
	s := &session{formatter: formatter}

	m, err := LoadValidModel(modelPath)
	if err != nil {
		code, msg := loadErrorCode(err)
		return nil, formatter.Fail(ExitCommandError, code, msg)
	}
	s.model = m

	cubeName := opts.Cube
	if cubeName == "" {
		if len(m.Cubes) != 1 {
			return nil, formatter.Fail(ExitCommandError, ErrCodeQuery, fmt.Sprintf("model has %d cubes: --cube is required", len(m.Cubes)))
		}
		cubeName = m.Cubes[0].Name
	}

	var exec star.Executor
	if withDB {
		if opts.DB == "" {
			return nil, formatter.Fail(ExitCommandError, ErrCodeDatabase, "--db is required")
		}
		st, err := store.Open(opts.Driver, opts.DB)
		if err != nil {
			return nil, formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
		}
		s.store = st
		exec = st
	}

	locale := ResolveLocale(opts.Locale, m)
	formatter.VerboseLog("Browsing cube %s (locale %q)", cubeName, locale)

	s.browser, err = star.NewBrowser(m, cubeName, exec,
		star.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())),
		star.WithLocale(locale),
	)
	if err != nil {
		s.Close()
		return nil, formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error())
	}

	cuts, err := cube.ParseCuts(opts.Cut)
	if err == nil {
		s.cell, err = cube.NewCell(s.browser.Cube(), cuts...)
	}
	if err != nil {
		s.Close()
		return nil, formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error())
	}
	return s, nil
}

// queryFailed reports an error of a browser call. Model, hierarchy and
// join configuration errors are query errors; the rest come from the
// database.
func (s *session) queryFailed(err error) error {
	if isQueryError(err) {
		return s.formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error())
	}
	return s.formatter.Fail(ExitFailure, ErrCodeDatabase, err.Error())
}

func isQueryError(err error) bool {
	var (
		unresolved *mapper.UnresolvedJoinError
		cycle      *mapper.JoinCycleError
	)
	return model.IsModelError(err) || cube.IsHierarchyError(err) ||
		errors.As(err, &unresolved) || errors.As(err, &cycle)
}

// parseKey reads a fact key argument: an integer if it parses as one,
// else the string.
func parseKey(arg string) any {
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return n
	}
	return arg
}
