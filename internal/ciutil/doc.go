// Package ciutil provides utilities for CI and environment-specific functionality.
//
// It centralizes environment detection (CI or local), masking of
// credentials before they are logged, and project root detection used to
// resolve schema and migration paths independently of the package a test
// runs from.
package ciutil
