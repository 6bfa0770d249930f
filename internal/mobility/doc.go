// Package mobility provides the filtering logic for mobility exports.
//
// The package holds no UI or transport code. The web layer, tests, or any
// other frontend feed it an uploaded file and a [Selection] and get back plain
// values to render.
//
// # Flows
//
// Each tab of the application is a [Flow]: a label, a file-name slug, a schema
// [Variant] and the source column names. Flows are registered at init time
// with [Register] and looked up with [LookupFlow]; the four built-in flows
// live in flows.go.
//
// # Loading
//
// [Loader.Load] turns an uploaded file into a [Dataset]:
//
//  1. The extension selects delimited text or spreadsheet parsing
//  2. The header is checked for the flow's required columns
//  3. The date column is reduced to a calendar year
//  4. Optional display columns are backfilled with a placeholder
//
// A load either returns a complete dataset or one of [*FormatError],
// [*SchemaError] or [*LoadError]; there is no partial result.
//
// # Filtering
//
// [Pipeline.Run] is a pure function of a dataset and a selection. It cascades
// year, country set and region, and reports through [Stage] how far the
// selection got. Only [StageReady] carries a projected [Table].
//
// # Export
//
// [Exporter] serializes a [Table] to CSV and to a spreadsheet workbook. The
// two renderings are independent; [Exporter.Export] reports an error per
// format.
package mobility
