// Package api is a client for the PokéAPI-shaped catalog service. Every GET
// goes through a cache.Memo keyed by the absolute request URL, so a resource
// is downloaded at most once per cache lifetime and survives restarts through
// the disk tier.
package api
