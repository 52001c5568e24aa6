// Package catalog is the immutable lookup table of services offered by the bot.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Service is a single catalog entry. PriceMinor is in kopecks; zero marks a
// free service.
type Service struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	PriceMinor  int64  `yaml:"price_minor"`
	AssetURL    string `yaml:"asset_url"`
}

// Free reports whether the service is delivered without payment.
func (s Service) Free() bool { return s.PriceMinor == 0 }

// ErrUnknownService is returned by Lookup for ids missing from the catalog.
var ErrUnknownService = errors.New("catalog: unknown service")

// Catalog preserves declaration order for menus.
type Catalog struct {
	order []string
	byID  map[string]Service
}

// New validates services and builds a catalog.
func New(services []Service) (*Catalog, error) {
	if len(services) == 0 {
		return nil, errors.New("catalog: no services")
	}
	c := &Catalog{byID: make(map[string]Service, len(services))}
	for i, s := range services {
		s.ID = strings.TrimSpace(s.ID)
		switch {
		case s.ID == "":
			return nil, fmt.Errorf("catalog: service #%d: empty id", i+1)
		case strings.ContainsAny(s.ID, "|\f"):
			return nil, fmt.Errorf("catalog: service %q: id must not contain callback separators", s.ID)
		case strings.TrimSpace(s.Name) == "":
			return nil, fmt.Errorf("catalog: service %q: empty name", s.ID)
		case s.PriceMinor < 0:
			return nil, fmt.Errorf("catalog: service %q: negative price", s.ID)
		case strings.TrimSpace(s.AssetURL) == "":
			return nil, fmt.Errorf("catalog: service %q: empty asset url", s.ID)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate service id %q", s.ID)
		}
		c.byID[s.ID] = s
		c.order = append(c.order, s.ID)
	}
	return c, nil
}

// Lookup returns the service with the given id.
func (c *Catalog) Lookup(id string) (Service, error) {
	if c != nil {
		if s, ok := c.byID[id]; ok {
			return s, nil
		}
	}
	return Service{}, fmt.Errorf("%w: %q", ErrUnknownService, id)
}

// List returns services in declaration order.
func (c *Catalog) List() []Service {
	if c == nil {
		return nil
	}
	out := make([]Service, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
