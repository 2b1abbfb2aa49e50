// Package config handles configuration loading, parsing, and validation
// for the test harness. Settings are sourced from environment variables
// (optionally seeded from a .env file) and validated before use, so a
// misconfigured database target fails fast instead of midway through a
// test session.
package config
