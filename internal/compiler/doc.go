// Package compiler loads dimensional models from CUE or JSON files.
//
// A model file has three top-level fields:
//
//	options: {
//		dimension_prefix: "dim_"
//		simplify_dimension_references: true
//		locale: "en"
//	}
//	dimensions: {
//		date: {
//			levels: [
//				{name: "year"},
//				{name: "month", attributes: ["month", "month_name"]},
//			]
//		}
//		flag: {}
//	}
//	cubes: {
//		sales: {
//			measures: [{name: "amount", aggregations: ["sum", "min"]}, "discount"]
//			details: ["fact_detail1"]
//			dimensions: ["date", "flag"]
//			joins: [{master: "sales.date_id", detail: "dim_date.id"}]
//			mappings: {"date.month_name": "dim_date.mname"}
//		}
//	}
//
// CompileModel turns a CUE value into a model.Model, reporting structural
// problems as *CompileError with source positions. ValidateModel then
// checks the semantic rules that span cubes and dimensions.
package compiler
