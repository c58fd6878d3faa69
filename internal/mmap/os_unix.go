//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

// advise issues one madvise call per hint. The first failure wins.
func advise(data []byte, a Advice) error {
	var err error
	for _, h := range []struct {
		hint Advice
		madv int
	}{
		{Sequential, unix.MADV_SEQUENTIAL},
		{Prefetch, unix.MADV_WILLNEED},
	} {
		if a.Has(h.hint) {
			if e := unix.Madvise(data, h.madv); e != nil && err == nil {
				err = e
			}
		}
	}
	return err
}
