// Command libslotmap builds the slot map as a C shared library:
//
//	go build -buildmode=c-shared -o libslotmap.so ./cmd/libslotmap
//
// Every exported function takes the region base pointer and its size in
// bytes, and returns a status code (0 on success, negative on failure; see
// internal/cabi). The region holds all state, so hosts may move it freely
// between calls.
package main

func main() {}
