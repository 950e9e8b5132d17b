// Package kind holds the registry of catalog resource kinds (species, item,
// move, ...). Each kind records the endpoint segment used to build request
// URLs and its default listing page size. Config validation, the dex loaders
// and the diagnostics routes all resolve kinds through this registry instead
// of hard-coding endpoint names.
package kind
