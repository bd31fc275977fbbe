// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, LLM provider credentials, GitHub access, and
// load-balancer health check settings.
package config
