// Package star plans and runs aggregation queries over a star or snowflake
// schema.
//
// A QueryContext turns cells, measures and resolved drilldowns into
// queryir statements joining only the tables the query touches. A Browser
// runs those statements through an Executor and labels the rows.
//
// Result rows are keyed by logical references: "amount_sum" and
// "record_count" for aggregates, "date.year" for dimension attributes and
// the bare dimension name for simplified flat dimensions.
package star
