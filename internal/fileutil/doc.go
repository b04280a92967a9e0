// Package fileutil reads subtitle inputs and writes outputs atomically under
// an advisory file lock.
package fileutil
