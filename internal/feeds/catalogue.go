// Package feeds loads the carpark catalogue and the live availability feed.
package feeds

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/randytsao24/parkedup/internal/models"
)

// ErrMissingColumn is returned when the catalogue header lacks a required column
var ErrMissingColumn = errors.New("catalogue missing required column")

// header names accepted for each catalogue column, first match wins
var columnAliases = map[string][]string{
	"number":        {"car_park_no", "identifier"},
	"address":       {"address"},
	"x":             {"x_coord"},
	"y":             {"y_coord"},
	"type":          {"car_park_type", "type"},
	"gantry_height": {"gantry_height"},
}

var requiredColumns = []string{"number", "x", "y"}

// CSVCatalogue serves facility rows from the HDB carpark information CSV.
// The file is read on first use and cached for the life of the catalogue.
type CSVCatalogue struct {
	path       string
	facilities []models.Facility
	mu         sync.RWMutex
	loaded     bool
}

// NewCSVCatalogue creates a catalogue backed by the CSV file at path
func NewCSVCatalogue(path string) *CSVCatalogue {
	return &CSVCatalogue{path: path}
}

// Facilities returns the catalogue rows, reading the file on first call
func (c *CSVCatalogue) Facilities(ctx context.Context) ([]models.Facility, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.loaded {
		defer c.mu.RUnlock()
		return c.facilities, nil
	}
	c.mu.RUnlock()

	if err := c.Load(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.facilities, nil
}

// Load reads the CSV file, replacing any rows read earlier
func (c *CSVCatalogue) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	file, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("opening catalogue file: %w", err)
	}
	defer file.Close()

	facilities, err := ParseCatalogue(file)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", c.path, err)
	}

	c.facilities = facilities
	c.loaded = true
	return nil
}

// ParseCatalogue reads facility rows from CSV with a header row. Columns are
// matched by name so their order does not matter. Short rows are skipped.
func ParseCatalogue(r io.Reader) ([]models.Facility, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty catalogue: %w", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := indexColumns(header)
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnAliases[name][0])
		}
	}

	var facilities []models.Facility
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}

		if columns["y"] >= len(record) || columns["x"] >= len(record) || columns["number"] >= len(record) {
			continue
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		facilities = append(facilities, models.Facility{
			Number:       field("number"),
			Address:      field("address"),
			Type:         field("type"),
			GantryHeight: field("gantry_height"),
			X:            field("x"),
			Y:            field("y"),
		})
	}

	return facilities, nil
}

func indexColumns(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		positions[strings.ToLower(strings.TrimSpace(h))] = i
	}

	columns := make(map[string]int, len(columnAliases))
	for name, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := positions[alias]; ok {
				columns[name] = i
				break
			}
		}
	}
	return columns
}
