// Package report turns a settled ledger into the artifacts shown to the group:
// the debt narrative, a verification listing, a delimited export and a chart.
package report
