// Package testsupport builds throwaway configurations and media fixtures for
// package tests.
package testsupport
