package pages

import (
	"fmt"
	"storefront-e2e/internal/facade"
	"storefront-e2e/pkg/apperr"
	"storefront-e2e/pkg/logg"
	"sync"

	"go.uber.org/zap"
)

const registryName = "PageRegistry"

type Kind string

const (
	KindNavigation Kind = "navigation"
	KindCatalog    Kind = "catalog"
	KindProduct    Kind = "product"
	KindCart       Kind = "cart"
)

// Object is a page object bound to the page of one scenario.
type Object interface {
	Kind() Kind
}

var constructors = map[Kind]func(b base) Object{
	KindNavigation: func(b base) Object { return &Navigation{base: b} },
	KindCatalog:    func(b base) Object { return &Catalog{base: b} },
	KindProduct:    func(b base) Object { return &Product{base: b} },
	KindCart:       func(b base) Object { return &Cart{base: b} },
}

func Kinds() []Kind {
	return []Kind{KindNavigation, KindCatalog, KindProduct, KindCart}
}

// Registry lazily builds page objects and caches them by kind. It belongs to
// one scenario world; Reset only drops the cache and never touches the page.
type Registry struct {
	actions *facade.Actions
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[Kind]Object
}

func NewRegistry(actions *facade.Actions, logger *zap.Logger) *Registry {
	return &Registry{
		actions: actions,
		logger:  logger.With(zap.String(logg.Layer, registryName)),
		cache:   make(map[Kind]Object),
	}
}

func (r *Registry) Get(kind Kind) (Object, error) {
	const op = "Get"

	r.mu.Lock()
	defer r.mu.Unlock()

	if obj, ok := r.cache[kind]; ok {
		return obj, nil
	}

	ctor, ok := constructors[kind]
	if !ok {
		return nil, apperr.InvalidReqError(op, "kind", fmt.Errorf("unknown page kind %q", kind))
	}

	obj := ctor(base{
		actions: r.actions,
		logger:  r.logger.With(zap.String(logg.Kind, string(kind))),
	})
	r.cache[kind] = obj

	r.logger.Debug("Page object created", zap.String(logg.Kind, string(kind)))

	return obj, nil
}

// Reset drops every cached page object.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.cache)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.cache)
}

func (r *Registry) Actions() *facade.Actions {
	return r.actions
}

func (r *Registry) Navigation() *Navigation {
	return r.mustGet(KindNavigation).(*Navigation)
}

func (r *Registry) Catalog() *Catalog {
	return r.mustGet(KindCatalog).(*Catalog)
}

func (r *Registry) Product() *Product {
	return r.mustGet(KindProduct).(*Product)
}

func (r *Registry) Cart() *Cart {
	return r.mustGet(KindCart).(*Cart)
}

// mustGet is only used with the known kinds above.
func (r *Registry) mustGet(kind Kind) Object {
	obj, err := r.Get(kind)
	if err != nil {
		panic(err)
	}

	return obj
}
