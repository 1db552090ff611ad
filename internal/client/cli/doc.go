// Package cli provides the interactive recordkeeper command-line client.
//
// It keeps the configured folder loaded in memory, refreshes it in the
// background and hands every refresh to the auto-trigger controller, so
// documents are parsed and translated without user action. The REPL adds
// manual commands on top:
//   - list / refresh the folder
//   - add an attachment as a new record
//   - parse / translate a record on demand
//   - inspect the queue, progress snapshots and a live progress bar
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
