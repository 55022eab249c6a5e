//go:build !linux

package ring

import "fmt"

// New is unavailable off Linux: io_uring is a Linux-only kernel interface.
func New(cfg Config) (Ring, error) {
	return nil, fmt.Errorf("ring: io_uring requires linux, build on a linux target")
}
