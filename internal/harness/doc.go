// Package harness runs YAML query scenarios against a fresh in-memory
// warehouse.
//
// A scenario names a model file, a schema script and table rows to load,
// then a list of queries to run through a star.Browser. Each query may
// carry an expect clause checked against its result. Scenario-level
// assertions check the statements the browser executed and the loaded
// tables:
//
//	name: shop_sales
//	description: Totals and drilldown over the shop cube
//	model: ../models/shop.cue
//	cube: orders
//	schema: |
//	  CREATE TABLE orders (id INTEGER PRIMARY KEY, amount INTEGER);
//	tables:
//	  - name: orders
//	    columns: [id, amount]
//	    rows:
//	      - [1, 10]
//	queries:
//	  - name: totals
//	    type: aggregate
//	    expect:
//	      summary: {amount_sum: 10, record_count: 1}
//	assertions:
//	  - type: statement_count
//	    query: totals
//	    count: 1
//
// Every run gets its own database and a fixed request id, so the outputs
// of a scenario are deterministic and can be compared against golden
// files with RunWithGolden.
package harness
