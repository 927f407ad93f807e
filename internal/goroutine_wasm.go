//go:build wasm

package internal

// wasm runs a single thread, every caller shares one identity
func goroutineID() int64 {
	return 1
}
