// Package watch provides a filesystem watcher for the knowledge-base
// directory tree. It observes rem file changes via fsnotify and triggers a
// debounced incremental sync, so edits made with an external editor show up
// in the database without a manual sync call.
package watch
