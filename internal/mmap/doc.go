// Package mmap provides read-only memory-mapped file access.
//
// LocalStore maps segment files instead of reading them through kernel
// buffers:
//
//	m, err := mmap.Open("segment.vxs", mmap.Sequential|mmap.Prefetch)
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// Unix uses mmap(2) with madvise(2) hints; Windows uses
// CreateFileMapping/MapViewOfFile and ignores hints.
//
// Bytes must not be used after Close.
package mmap
