// Package history keeps recent execution results retrievable by
// request ID, with an in-memory LRU in front of JSON files on disk.
package history

import "github.com/deixis/shellbridge/internal/executor"

// Store persists and retrieves execution results.
type Store interface {
	Save(result *executor.Result) error
	Load(requestID string) (*executor.Result, error)
}
