// Package sync propagates roster mutations across the stores of a week.
//
// A week holds three stores that share no key: the roster workbook (one row
// per student), one workbook per school (one sheet per slot, one row per
// class with a joined student list) and the personnel registry (staff to
// owned classes). Every operation of the Syncer interface edits one store
// and carries the consequence to the others, resolving names through a
// match.Matcher and columns through the schema tables.
//
// Operations load the stores they need fresh from disk and write back only
// the stores they actually modified, so running an operation twice leaves
// the files as running it once does. There is no rollback: an operation
// that fails after saving some stores returns a *StepError naming the
// failed step and the steps already done.
package sync
