// calc is a command-line front end for the arith package.
// Install it with `go install github.com/toejough/arith/calc@latest` and run, for example,
// `calc pow 2 -2` or `calc --precision 2 div 1 3`. Each operation prints its result on stdout; errors such as
// division by zero are printed on stderr with a non-zero exit status.
package main

import (
	"fmt"
	"os"

	"github.com/toejough/arith/calc/run"
)

// main is the entry point of the calc tool.
func main() {
	if os.Args == nil {
		return
	}

	err := run.Run(os.Args, os.Getenv, &realFileSystem{}, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// realFileSystem implements FileSystem using os package.
type realFileSystem struct{}

// ReadFile reads the file named by name and returns the contents.
func (fs *realFileSystem) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}

	return data, nil
}
