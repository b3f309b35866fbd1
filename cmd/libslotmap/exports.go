//go:build cgo

package main

/*
#include <stddef.h>
#include <stdint.h>

#define SLOTMAP_FLAG_WRAP             0x1
#define SLOTMAP_FLAG_REQUIRE_CAPACITY 0x2
*/
import "C"

import (
	"unsafe"

	"github.com/joshuapare/slotkit/internal/cabi"
)

func region(base unsafe.Pointer, size C.size_t) []byte {
	if base == nil || size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(base), int(size))
}

func config(indexWidth, generationWidth C.uint8_t, dataAlign, flags C.uint32_t) cabi.Config {
	return cabi.Config{
		IndexWidth:      uint8(indexWidth),
		GenerationWidth: uint8(generationWidth),
		DataAlign:       uint32(dataAlign),
		Wrap:            flags&C.SLOTMAP_FLAG_WRAP != 0,
		RequireCapacity: flags&C.SLOTMAP_FLAG_REQUIRE_CAPACITY != 0,
	}
}

//export slotmap_layout_size
func slotmap_layout_size(capacity, elementSize C.uint64_t, indexWidth, generationWidth C.uint8_t, dataAlign, flags C.uint32_t) C.int64_t {
	c := config(indexWidth, generationWidth, dataAlign, flags)
	return C.int64_t(cabi.LayoutSize(uint64(capacity), uint64(elementSize), c))
}

//export slotmap_init
func slotmap_init(base unsafe.Pointer, size C.size_t, capacity, elementSize C.uint64_t, indexWidth, generationWidth C.uint8_t, dataAlign, flags C.uint32_t) C.int32_t {
	c := config(indexWidth, generationWidth, dataAlign, flags)
	return C.int32_t(cabi.Init(region(base, size), uint64(capacity), uint64(elementSize), c))
}

//export slotmap_allocate
func slotmap_allocate(base unsafe.Pointer, size C.size_t, outID *C.uint32_t, outGeneration *C.uint64_t) C.int32_t {
	id, gen, st := cabi.Allocate(region(base, size))
	if st == cabi.OK {
		if outID != nil {
			*outID = C.uint32_t(id)
		}
		if outGeneration != nil {
			*outGeneration = C.uint64_t(gen)
		}
	}
	return C.int32_t(st)
}

//export slotmap_insert
func slotmap_insert(base unsafe.Pointer, size C.size_t, id C.uint32_t, generation C.uint64_t, src unsafe.Pointer, srcLen C.size_t) C.int32_t {
	var payload []byte
	if src != nil && srcLen > 0 {
		payload = unsafe.Slice((*byte)(src), int(srcLen))
	}
	return C.int32_t(cabi.Insert(region(base, size), uint32(id), uint64(generation), payload))
}

//export slotmap_remove
func slotmap_remove(base unsafe.Pointer, size C.size_t, id C.uint32_t, generation C.uint64_t) C.int32_t {
	return C.int32_t(cabi.Remove(region(base, size), uint32(id), uint64(generation)))
}

//export slotmap_is_alive
func slotmap_is_alive(base unsafe.Pointer, size C.size_t, id C.uint32_t, generation C.uint64_t) C.int32_t {
	if cabi.IsAlive(region(base, size), uint32(id), uint64(generation)) {
		return 1
	}
	return 0
}

//export slotmap_get
func slotmap_get(base unsafe.Pointer, size C.size_t, id C.uint32_t, generation C.uint64_t, outData *unsafe.Pointer) C.int32_t {
	b, st := cabi.Get(region(base, size), uint32(id), uint64(generation))
	if st == cabi.OK && outData != nil {
		if len(b) == 0 {
			*outData = nil
		} else {
			*outData = unsafe.Pointer(&b[0])
		}
	}
	return C.int32_t(st)
}

//export slotmap_count
func slotmap_count(base unsafe.Pointer, size C.size_t) C.int64_t {
	return C.int64_t(cabi.Count(region(base, size)))
}

//export slotmap_clear
func slotmap_clear(base unsafe.Pointer, size C.size_t) C.int32_t {
	return C.int32_t(cabi.Clear(region(base, size)))
}

//export slotmap_check
func slotmap_check(base unsafe.Pointer, size C.size_t) C.int32_t {
	return C.int32_t(cabi.Check(region(base, size)))
}
