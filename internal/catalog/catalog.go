// Package catalog provides the read-only creature and forest catalog.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"garden-bot/internal/model"
	"garden-bot/internal/store"
)

// Common errors for catalog lookups
var (
	ErrTemplateNotFound = errors.New("creature template not found")
	ErrForestNotFound   = errors.New("forest not found")
)

//go:embed defaults.yaml
var defaultsYAML []byte

type seedFile struct {
	Creatures []model.CreatureTemplate `yaml:"creatures"`
	Forests   []model.Forest           `yaml:"forests"`
}

// Catalog is an immutable lookup of creature templates and forests.
// It is safe for concurrent use once built.
type Catalog struct {
	templates map[string]model.CreatureTemplate
	forests   map[string]model.Forest
	order     []string
}

// New builds a Catalog from explicit entries.
func New(templates []model.CreatureTemplate, forests []model.Forest) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[string]model.CreatureTemplate, len(templates)),
		forests:   make(map[string]model.Forest, len(forests)),
	}
	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("catalog: template with empty id")
		}
		if len(t.Moves) == 0 {
			return nil, fmt.Errorf("catalog: template %s has no moves", t.ID)
		}
		c.templates[t.ID] = t
	}
	for _, f := range forests {
		for _, s := range f.Spawns {
			if _, ok := c.templates[s.TemplateID]; !ok {
				return nil, fmt.Errorf("catalog: forest %s spawns unknown template %s", f.ID, s.TemplateID)
			}
		}
		c.forests[f.ID] = f
		c.order = append(c.order, f.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Defaults parses the embedded default catalog.
func Defaults() (*Catalog, error) {
	var seed seedFile
	if err := yaml.Unmarshal(defaultsYAML, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse default catalog: %w", err)
	}
	return New(seed.Creatures, seed.Forests)
}

// Load reads the catalog from the record store, seeding it with the
// embedded defaults when the store holds no templates yet.
func Load(ctx context.Context, s store.RecordStore) (*Catalog, error) {
	recs, err := s.LoadAll(ctx, model.CollectionCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if len(recs) == 0 {
		def, err := Defaults()
		if err != nil {
			return nil, err
		}
		if err := def.seed(ctx, s); err != nil {
			return nil, err
		}
		log.Info().Int("templates", len(def.templates)).Int("forests", len(def.forests)).Msg("Seeded default catalog")
		return def, nil
	}

	templates := make([]model.CreatureTemplate, 0, len(recs))
	for _, rec := range recs {
		var t model.CreatureTemplate
		if err := json.Unmarshal(rec.Data, &t); err != nil {
			return nil, fmt.Errorf("failed to decode template %s: %w", rec.Key, err)
		}
		templates = append(templates, t)
	}

	forestRecs, err := s.LoadAll(ctx, model.CollectionForests)
	if err != nil {
		return nil, fmt.Errorf("failed to load forests: %w", err)
	}
	forests := make([]model.Forest, 0, len(forestRecs))
	for _, rec := range forestRecs {
		var f model.Forest
		if err := json.Unmarshal(rec.Data, &f); err != nil {
			return nil, fmt.Errorf("failed to decode forest %s: %w", rec.Key, err)
		}
		forests = append(forests, f)
	}

	return New(templates, forests)
}

func (c *Catalog) seed(ctx context.Context, s store.RecordStore) error {
	for id, t := range c.templates {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode template %s: %w", id, err)
		}
		_, err = s.Save(ctx, model.CollectionCatalog, store.Record{Key: id, Data: data})
		if err != nil && !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("failed to seed template %s: %w", id, err)
		}
	}
	for id, f := range c.forests {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to encode forest %s: %w", id, err)
		}
		_, err = s.Save(ctx, model.CollectionForests, store.Record{Key: id, Data: data})
		if err != nil && !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("failed to seed forest %s: %w", id, err)
		}
	}
	return nil
}

// TemplateOf returns a copy of the template with the given id.
func (c *Catalog) TemplateOf(id string) (model.CreatureTemplate, error) {
	t, ok := c.templates[id]
	if !ok {
		return model.CreatureTemplate{}, ErrTemplateNotFound
	}
	t.Moves = append([]model.Move(nil), t.Moves...)
	return t, nil
}

// Forest returns the forest with the given id.
func (c *Catalog) Forest(id string) (model.Forest, error) {
	f, ok := c.forests[id]
	if !ok {
		return model.Forest{}, ErrForestNotFound
	}
	f.Spawns = append([]model.Spawn(nil), f.Spawns...)
	return f, nil
}

// Forests returns all forests ordered by id.
func (c *Catalog) Forests() []model.Forest {
	out := make([]model.Forest, 0, len(c.order))
	for _, id := range c.order {
		f, _ := c.Forest(id)
		out = append(out, f)
	}
	return out
}
