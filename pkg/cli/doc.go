// Package cli implements the collmock command line.
//
// Commands:
//
//	generate   run one rebuild pass
//	serve      rebuild, serve the mock API and optionally watch for changes
//	routes     list the routes of one collection file
//	openapi    describe the mock API as an OpenAPI document
//	version    print build information
package cli
