// Package watch provides file-watching for helmschema's live-reload
// workflow. It monitors a Helm chart directory for changes, debounces
// rapid events, and re-runs schema inference automatically.
package watch
