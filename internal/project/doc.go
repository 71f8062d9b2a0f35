// Package project manages the registry of projects known to the daemon.
//
// Each project pairs a workspace path with a context directory that holds
// its context files. The registry is persisted as TOML under the storage
// root and reloaded at startup, and the Manager hands out one lazily
// created contextfile.Store per project.
package project
