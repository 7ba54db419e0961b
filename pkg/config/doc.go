// Package config holds collmock's runtime configuration.
//
// Values come from three layers, later ones winning: DefaultConfig, an
// optional YAML file (collmock.yaml, or the path in $COLLMOCK_CONFIG), and
// command-line flags. Relative directories in a config file are resolved
// against the file's own directory.
//
// Example collmock.yaml:
//
//	collectionsDir: postman_collections
//	pattern: "**/*.json"
//	dataDir: mock_data
//	endpointsDir: endpoints
//	mountPrefix: /api
//	listen: ":3000"
//	watch: true
//	pollInterval: 0s
//	log:
//	  level: info
//	  format: text
package config
