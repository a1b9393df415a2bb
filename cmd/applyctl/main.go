package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/applyctl/internal/apply"
)

func main() {
	err := run(os.Args[1:])
	if err == nil {
		return
	}
	if errors.Is(err, apply.ErrNoChanges) {
		fmt.Fprintln(os.Stderr, "applyctl: script made no changes")
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "applyctl: %v\n", err)
	os.Exit(1)
}
