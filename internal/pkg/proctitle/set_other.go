//go:build !linux

package proctitle

import (
	"errors"
	"os"
	"strings"
)

// Set is best-effort on non-Linux platforms: it only rewrites os.Args[0].
func Set(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("empty process title")
	}
	if len(os.Args) > 0 {
		os.Args[0] = title
	}
	return nil
}
