// Package watch discovers input files: a one-shot Scan of the input
// directory at startup and an fsnotify Watcher for files created afterwards.
//
// Both are non-recursive. The sentinel placeholder and hidden files are never
// reported; directories are ignored.
package watch
