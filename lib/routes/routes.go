// Copyright 2026 The Vaultline Authors
// SPDX-License-Identifier: Apache-2.0

// Package routes maps webhook destinations to vault write targets.
//
// A route table is authored on disk as a JSONC file (JSON extended
// with comments and trailing commas). Each route names a vault
// location and layout kind; incoming events select a route by the
// webhook envelope's destination (the bot user ID), falling back to
// the table's default route when no destination matches.
//
// The typical flow:
//
//  1. ReadFile or Parse: JSONC bytes → Table
//  2. Table.Select: destination → Route
//  3. Route.Target: route + day stamp → vault write target
//
// A deployment with a single bot needs no route file at all;
// DefaultTable routes everything into the daily diary.
package routes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/vaultline/vaultline/lib/stamp"
	"github.com/vaultline/vaultline/lib/vault"
)

// Route describes one vault destination for incoming entries.
type Route struct {
	// Name identifies the route in logs and in the table's default
	// reference. Unique within a table.
	Name string `json:"name"`

	// Kind selects the file layout: timeline routes append to a
	// date-named file under Dir, topic routes insert date blocks into
	// the single file Dir/File.
	Kind vault.Kind `json:"kind"`

	// Dir is the vault-relative directory the route writes under.
	// Required for timeline routes; optional for topic routes, whose
	// file may live at the vault root.
	Dir string `json:"dir,omitempty"`

	// File is the topic file name, e.g. "notebook.md". Only valid on
	// topic routes.
	File string `json:"file,omitempty"`

	// Header is the first line of a newly created file, e.g.
	// "## Timeline".
	Header string `json:"header"`

	// MarkerDedup embeds an invisible delivery marker in each entry so
	// that redeliveries are suppressed even after the entry text has
	// been hand-edited. Off by default; the marker is an HTML comment
	// that some vault tooling may surface.
	MarkerDedup bool `json:"marker_dedup,omitempty"`

	// Destinations lists the webhook destinations (bot user IDs) this
	// route serves. An event whose destination appears here selects
	// this route; events matching no route use the table default.
	Destinations []string `json:"destinations,omitempty"`
}

// RelativePath returns the vault-relative file path the route writes
// for a day stamp: date-partitioned for timeline routes, fixed for
// topic routes.
func (r Route) RelativePath(s stamp.Stamp) string {
	if r.Kind == vault.KindTimeline {
		return vault.DiaryPath("", r.Dir, s)
	}
	return filepath.Join(r.Dir, r.File)
}

// Target resolves the route to a concrete write target inside the
// working copy rooted at root.
func (r Route) Target(root string, s stamp.Stamp) vault.Target {
	return vault.Target{
		Path:   filepath.Join(root, r.RelativePath(s)),
		Kind:   r.Kind,
		Header: r.Header,
		Date:   s.Date,
	}
}

// File is the JSONC document shape of a route table.
type File struct {
	Routes []Route `json:"routes"`

	// Default names the route used when an event's destination matches
	// no route. Empty selects the first route in the list.
	Default string `json:"default,omitempty"`
}

// Table is a validated route table ready for lookups.
type Table struct {
	routes        []Route
	byDestination map[string]Route
	fallback      Route
}

// Default returns the built-in diary route: a timeline under 01_diary
// with the standard header and no delivery markers.
func Default() Route {
	return Route{
		Name:   "diary",
		Kind:   vault.KindTimeline,
		Dir:    "01_diary",
		Header: "## Timeline",
	}
}

// DefaultTable returns a table containing only the built-in diary
// route. Deployments without a route file use this.
func DefaultTable() *Table {
	return newTable(&File{Routes: []Route{Default()}})
}

// Parse strips JSONC comments and trailing commas from data, then
// unmarshals and validates the result. All validation issues are
// reported in one error.
func Parse(data []byte) (*Table, error) {
	stripped := jsonc.ToJSON(data)

	var file File
	if err := json.Unmarshal(stripped, &file); err != nil {
		return nil, fmt.Errorf("parsing route table: %w", err)
	}

	if issues := Validate(&file); len(issues) > 0 {
		return nil, fmt.Errorf("route table: %s", strings.Join(issues, "; "))
	}

	return newTable(&file), nil
}

// ReadFile reads a JSONC route table from disk and parses it. Returns
// a descriptive error if the file cannot be read or fails validation.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return table, nil
}

// Validate checks a route file for structural issues. Returns a list
// of human-readable issue descriptions. An empty list means the table
// is valid.
func Validate(file *File) []string {
	var issues []string

	if len(file.Routes) == 0 {
		issues = append(issues, "route table has no routes (at least one route is required)")
	}

	names := make(map[string]int, len(file.Routes))
	claimed := make(map[string]string)
	for index, route := range file.Routes {
		prefix := fmt.Sprintf("routes[%d] %q", index, route.Name)

		if route.Name == "" {
			issues = append(issues, fmt.Sprintf("routes[%d]: name is required", index))
		} else if firstIndex, exists := names[route.Name]; exists {
			issues = append(issues, fmt.Sprintf(
				"%s: duplicate route name (first used at routes[%d])", prefix, firstIndex))
		} else {
			names[route.Name] = index
		}

		kind, err := vault.ParseKind(string(route.Kind))
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", prefix, err))
		} else {
			switch kind {
			case vault.KindTimeline:
				if route.Dir == "" {
					issues = append(issues, fmt.Sprintf("%s: dir is required for timeline routes", prefix))
				}
				if route.File != "" {
					issues = append(issues, fmt.Sprintf(
						"%s: file is only valid on topic routes (timeline files are named by date)", prefix))
				}
			case vault.KindTopic:
				if route.File == "" {
					issues = append(issues, fmt.Sprintf("%s: file is required for topic routes", prefix))
				}
			}
		}

		if route.Header == "" {
			issues = append(issues, fmt.Sprintf("%s: header is required", prefix))
		}

		for _, destination := range route.Destinations {
			if destination == "" {
				issues = append(issues, fmt.Sprintf("%s: empty destination", prefix))
				continue
			}
			if owner, exists := claimed[destination]; exists {
				issues = append(issues, fmt.Sprintf(
					"%s: destination %q already claimed by route %q", prefix, destination, owner))
				continue
			}
			claimed[destination] = route.Name
		}
	}

	if file.Default != "" {
		if _, exists := names[file.Default]; !exists {
			issues = append(issues, fmt.Sprintf("default route %q does not exist", file.Default))
		}
	}

	return issues
}

// newTable indexes a validated file for lookups. The file must have
// passed Validate, which guarantees at least one route.
func newTable(file *File) *Table {
	table := &Table{
		routes:        slices.Clone(file.Routes),
		byDestination: make(map[string]Route),
	}

	for _, route := range file.Routes {
		for _, destination := range route.Destinations {
			table.byDestination[destination] = route
		}
	}

	table.fallback = file.Routes[0]
	if file.Default != "" {
		for _, route := range file.Routes {
			if route.Name == file.Default {
				table.fallback = route
				break
			}
		}
	}

	return table
}

// Select returns the route serving destination, or the table's default
// route when no route claims it.
func (t *Table) Select(destination string) Route {
	if route, ok := t.byDestination[destination]; ok {
		return route
	}
	return t.fallback
}

// Named returns the route with the given name. Manual appends address
// routes by name rather than by delivery destination.
func (t *Table) Named(name string) (Route, bool) {
	for _, route := range t.routes {
		if route.Name == name {
			return route, true
		}
	}
	return Route{}, false
}

// Routes returns a copy of the table's routes in file order.
func (t *Table) Routes() []Route {
	return slices.Clone(t.routes)
}
