// Package testsupport holds fixture, golden file and stub engine helpers
// shared by the package tests.
package testsupport
