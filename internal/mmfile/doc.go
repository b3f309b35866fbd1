// Package mmfile provides platform-specific helpers for memory-mapping slot
// map regions: read-only file images, shared read-write files and anonymous
// memory.
//
// On platforms without mmap the helpers fall back to heap buffers; MapShared
// then writes the buffer back to the file on cleanup.
package mmfile
