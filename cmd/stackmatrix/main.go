// stackmatrix discovers the provider test matrix for CI.
// Task 5.2: scans a tests directory whose immediate subdirectories are
// test types and emits them as a GitHub Actions matrix or plain lines.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	formatJSON  = "json"
	formatLines = "lines"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("stackmatrix", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("dir", "tests/integration", "Tests directory whose subdirectories are test types")
	format := fs.String("format", formatJSON, "Output format: json|lines")
	exclude := fs.String("exclude", "", "Comma-separated test types to omit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	types, err := discover(*dir, splitExcludes(*exclude))
	if err != nil {
		fmt.Fprintf(errOut, "ERROR: %v\n", err)
		return 1
	}

	switch *format {
	case formatJSON:
		payload, marshalErr := json.Marshal(map[string][]string{"test-type": types})
		if marshalErr != nil {
			fmt.Fprintf(errOut, "ERROR: %v\n", marshalErr)
			return 1
		}
		fmt.Fprintln(out, string(payload))
	case formatLines:
		for _, t := range types {
			fmt.Fprintln(out, t)
		}
	default:
		fmt.Fprintf(errOut, "ERROR: unknown format %q (json|lines)\n", *format)
		return 2
	}
	return 0
}

// discover lists the immediate subdirectories of dir, sorted, minus the
// excluded names. An empty matrix is an error: a CI run with zero jobs
// silently passes, which is never what the caller wants.
func discover(dir string, excluded map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading tests directory %s: %w", dir, err)
	}

	var types []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		if excluded[entry.Name()] {
			continue
		}
		types = append(types, entry.Name())
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("no test types found under %s", dir)
	}
	sort.Strings(types)
	return types, nil
}

func splitExcludes(list string) map[string]bool {
	excluded := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			excluded[name] = true
		}
	}
	return excluded
}
