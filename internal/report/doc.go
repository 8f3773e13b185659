// Package report holds the outcome of a release run and renders it for humans
// (styled text) and machines (JSON).
//
// The orchestrator produces one PackageReport per scheduled package, in
// schedule order, including packages that failed, were cancelled or never
// started. Errors carried by a report are classified with KindOf so that
// consumers can branch on a stable string instead of a Go type.
package report
