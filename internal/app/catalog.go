package app

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrAppExists       = errors.New("app: application already registered")
	ErrUnknownApp      = errors.New("app: unknown application")
	ErrInvalidMetadata = errors.New("app: invalid application metadata")
)

// Metadata describes one catalog entry.
type Metadata struct {
	ID          string
	Description string
}

// Factory builds a fresh application instance.
type Factory func() App

type catalogEntry struct {
	meta    Metadata
	factory Factory
}

// Catalog stores hostable applications by stable identifier.
type Catalog struct {
	items map[string]catalogEntry
}

func NewCatalog() *Catalog {
	return &Catalog{items: make(map[string]catalogEntry)}
}

// ValidateMetadata checks required fields and id format.
func ValidateMetadata(meta Metadata) error {
	id := strings.TrimSpace(meta.ID)
	if id == "" || strings.TrimSpace(meta.Description) == "" {
		return fmt.Errorf("%w: id and description are required", ErrInvalidMetadata)
	}
	if !isValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidMetadata, id)
	}
	return nil
}

func (c *Catalog) Register(meta Metadata, factory Factory) error {
	if factory == nil {
		return ErrNilApp
	}
	if err := ValidateMetadata(meta); err != nil {
		return err
	}
	if _, ok := c.items[meta.ID]; ok {
		return fmt.Errorf("%w: %q", ErrAppExists, meta.ID)
	}
	c.items[meta.ID] = catalogEntry{meta: meta, factory: factory}
	return nil
}

// New instantiates the application registered under id.
func (c *Catalog) New(id string) (App, error) {
	entry, ok := c.items[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownApp, id)
	}
	a := entry.factory()
	if a == nil {
		return nil, fmt.Errorf("%w: factory for %q returned nil", ErrNilApp, id)
	}
	return a, nil
}

// List returns metadata ordered by id.
func (c *Catalog) List() []Metadata {
	list := make([]Metadata, 0, len(c.items))
	for _, entry := range c.items {
		list = append(list, entry.meta)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

func isValidID(id string) bool {
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(id)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return id != ""
}
