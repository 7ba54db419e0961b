// Package dataset materializes route tables as mock dataset records and
// endpoint stubs, and serves them back to the resolver.
//
// On disk a pass produces:
//
//	<dataDir>/<collection>.json                one record per collection
//	<endpointsDir>/<route-name>.endpoint.yaml  one stub per route
//
// Stubs are wiped before every pass and recreated from scratch, so a removed
// or renamed collection never leaves a routable endpoint behind. Records of
// collections that no longer exist are pruned after the new ones are written.
//
// The resolver reads either the in-memory Store, which is swapped atomically
// once a pass succeeds, or a DiskSource reading the records directly.
package dataset
