// Package server hosts the Fiber HTTP surface that lets remote pollers drive
// the dex the same way the terminal UI does: every request returns at once,
// with 202 while a background fetch is still pending. The router attaches
// request ids and panic recovery; diagnostics live in the routes subpackage
// under the /-/ prefix.
package server
