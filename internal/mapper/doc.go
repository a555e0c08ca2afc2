// Package mapper resolves logical attribute references of a cube to
// physical (schema, table, column) references and finds the joins needed
// to reach a set of tables from the fact table.
//
// Naming convention, in order of precedence:
//  1. an explicit cube mapping "table.column" or "schema.table.column"
//  2. fact attributes live in the fact table under their own name
//  3. a flat dimension without details lives in the fact table under the
//     dimension name when dimension references are simplified
//  4. other dimension attributes live in dimension_prefix + dimension
//
// Localized attributes get a "_<locale>" column suffix.
//
// The join graph is indexed by detail identity (alias, else detail table)
// and checked for duplicates and cycles when the Mapper is built, so
// walking it backwards from any table always terminates.
package mapper
