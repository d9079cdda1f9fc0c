// Package shellbridge bridges a desktop AI assistant to shell command
// execution on the local host.
package shellbridge

// Version is the shellbridge release version.
const Version = "0.2.0"
