package format

import "errors"

var (
	// ErrSignatureMismatch indicates the region does not start with Signature.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrUnsupported indicates a version, word width or alignment this package does not handle.
	ErrUnsupported = errors.New("format: unsupported layout")
	// ErrCapacityOverflow indicates the capacity cannot be addressed by the
	// index width or pushes a table offset past the range of int.
	ErrCapacityOverflow = errors.New("format: capacity overflow")
	// ErrSizeOverflow indicates the data region or total size exceeds the range of int,
	// or the element size does not fit the header field.
	ErrSizeOverflow = errors.New("format: size overflow")
	// ErrInvalidArgument indicates a negative capacity or element size.
	ErrInvalidArgument = errors.New("format: invalid argument")
	// ErrBufferSize indicates the region length differs from the computed layout size.
	ErrBufferSize = errors.New("format: buffer size does not match layout")
)
