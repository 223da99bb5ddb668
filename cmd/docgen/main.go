// Command docgen scans the API handlers for @Title/@Route annotations and
// writes docs/api.adoc, which the node renders at /api/docs/api.adoc.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

type Endpoint struct {
	Title       string
	Route       string
	Description string
	Response    string
}

func main() {
	apiDir := "internal/api"
	outFile := filepath.Join("docs", "api.adoc")
	if len(os.Args) > 1 {
		outFile = os.Args[1]
	}

	endpoints, err := scanEndpoints(apiDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docgen: %v\n", err)
		os.Exit(1)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Route < endpoints[j].Route })

	if err := os.WriteFile(outFile, []byte(renderAdoc(endpoints)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "docgen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s (%d endpoints)\n", outFile, len(endpoints))
}

func scanEndpoints(apiDir string) ([]Endpoint, error) {
	files, err := os.ReadDir(apiDir)
	if err != nil {
		return nil, err
	}

	reTitle := regexp.MustCompile(`// @Title: (.*)`)
	reRoute := regexp.MustCompile(`// @Route: (.*)`)
	reDesc := regexp.MustCompile(`// @Description: (.*)`)
	reResp := regexp.MustCompile(`// @Response: (.*)`)

	var endpoints []Endpoint
	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".go") || strings.HasSuffix(file.Name(), "_test.go") {
			continue
		}

		f, err := os.Open(filepath.Join(apiDir, file.Name()))
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(f)
		var current Endpoint
		for scanner.Scan() {
			line := scanner.Text()

			if match := reTitle.FindStringSubmatch(line); len(match) > 1 {
				current.Title = strings.TrimSpace(match[1])
			}
			if match := reRoute.FindStringSubmatch(line); len(match) > 1 {
				current.Route = strings.TrimSpace(match[1])
			}
			if match := reDesc.FindStringSubmatch(line); len(match) > 1 {
				current.Description = strings.TrimSpace(match[1])
			}
			if match := reResp.FindStringSubmatch(line); len(match) > 1 {
				current.Response = strings.TrimSpace(match[1])
				// End of block, append and reset
				if current.Title != "" && current.Route != "" {
					endpoints = append(endpoints, current)
					current = Endpoint{}
				}
			}
		}
		f.Close()
	}
	return endpoints, nil
}

func renderAdoc(endpoints []Endpoint) string {
	var b strings.Builder
	b.WriteString("= pard API Reference\n")
	b.WriteString(":toc:\n\n")
	b.WriteString("Auto-generated from handler annotations. Do not edit by hand.\n\n")

	for _, ep := range endpoints {
		fmt.Fprintf(&b, "== %s\n\n", ep.Title)
		fmt.Fprintf(&b, "`%s`\n\n", ep.Route)
		if ep.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", ep.Description)
		}
		if ep.Response != "" {
			fmt.Fprintf(&b, "Response:: `%s`\n\n", ep.Response)
		}
	}
	return b.String()
}
