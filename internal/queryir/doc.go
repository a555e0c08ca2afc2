// Package queryir is the statement intermediate representation handed from
// the star planner to an executor.
//
// The planner never builds SQL text. It describes each statement as a
// Select (fact table, joins, fields, filter, grouping, ordering, paging) or a
// Count over a grouped Select, and the executor's backend compiler turns the
// description into its own dialect. package querysql is the SQL backend.
//
//	[cube.Cell + drilldown] -> [star.QueryContext] -> [queryir.Select] -> [querysql] -> database/sql
//
// SEALED INTERFACES:
//
// Query, Expr and Predicate are sealed with marker methods. Backends switch
// exhaustively over the node types of this package:
//
//	switch e := expr.(type) {
//	case Column:
//	case Aggregate:
//	}
//
// VALUES:
//
// Every literal in a predicate is an ir.IRValue. Floats never reach a
// statement, so parameters and statement fingerprints are deterministic.
package queryir
