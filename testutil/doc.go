// Package testutil provides deterministic random data and a fake deriver for
// tests of the table engine.
package testutil
