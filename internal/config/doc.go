// Package config loads the two configuration sources of the tool: the JSON
// runtime file (transaction limits, confirmation policy, coin naming, logging
// and journal) and the YAML CLI profile holding the node endpoints and the
// account key.
package config
