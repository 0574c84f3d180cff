//go:build !unix

package main

import "fmt"

func openMmap(uintptr) (*region, error) {
	return nil, fmt.Errorf("mmap backing is only available on unix")
}
