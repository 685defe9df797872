package recipes

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kode4food/walkthrough/internal/recipes/balance"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

type (
	// Registry maps recipe IDs to the factories that build them
	Registry struct {
		recipes map[api.RecipeID]*Recipe
		mu      sync.RWMutex
	}

	// Recipe is a registered walkthrough
	Recipe struct {
		Factory workflow.Factory
		ID      api.RecipeID
		Title   string
	}
)

var (
	ErrRecipeNotFound  = errors.New("recipe not found")
	ErrRecipeExists    = errors.New("recipe already registered")
	ErrRecipeIDInvalid = errors.New("invalid recipe ID")
	ErrNilFactory      = errors.New("recipe factory is nil")
)

// NewRegistry creates an empty recipe registry
func NewRegistry() *Registry {
	return &Registry{
		recipes: map[api.RecipeID]*Recipe{},
	}
}

// Builtin returns a registry holding the walkthroughs shipped with this
// module
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister(balance.ID, balance.Title, balance.Definition)
	return r
}

// MustRegister adds a recipe, panicking if it cannot be registered
func (r *Registry) MustRegister(
	id api.RecipeID, title string, factory workflow.Factory,
) {
	if err := r.Register(id, title, factory); err != nil {
		panic(err)
	}
}

// Register adds a recipe. IDs must already be in sanitized form
func (r *Registry) Register(
	id api.RecipeID, title string, factory workflow.Factory,
) error {
	if id == "" || api.SanitizeID(id) != id {
		return fmt.Errorf("%w: %q", ErrRecipeIDInvalid, id)
	}
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recipes[id]; ok {
		return fmt.Errorf("%w: %s", ErrRecipeExists, id)
	}
	r.recipes[id] = &Recipe{
		ID:      id,
		Title:   title,
		Factory: factory,
	}
	return nil
}

// Get returns the recipe registered under id
func (r *Registry) Get(id api.RecipeID) (*Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recipes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, id)
	}
	return rec, nil
}

// List returns all recipes sorted by ID
func (r *Registry) List() []*Recipe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*Recipe, 0, len(r.recipes))
	for _, rec := range r.recipes {
		res = append(res, rec)
	}
	slices.SortFunc(res, func(a, b *Recipe) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return res
}

// Build invokes the recipe's factory for a new run
func (r *Registry) Build(
	ctx context.Context, id api.RecipeID, portal workflow.Portal,
) (*workflow.Definition, error) {
	rec, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return rec.Factory(ctx, portal)
}

// Info describes the recipe and its steps
func (rec *Recipe) Info(
	ctx context.Context, portal workflow.Portal,
) (*api.RecipeInfo, error) {
	def, err := rec.Factory(ctx, portal)
	if err != nil {
		return nil, err
	}
	return &api.RecipeInfo{
		ID:    rec.ID,
		Title: rec.Title,
		Steps: def.Info(),
	}, nil
}
