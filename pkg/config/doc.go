// Package config loads gateway configuration from environment variables and
// the optional connection mapping file. All variables use the GATEWAY_
// prefix. Validation runs at load time and refuses unsafe combinations
// rather than patching them up.
package config
