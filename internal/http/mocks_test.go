package http

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/fakestore/internal/catalog"
	"github.com/fjod/go_cart/fakestore/internal/domain"
)

type CatalogMock struct {
	m        sync.Mutex
	products map[int64]domain.Product
	err      error
	deleted  []int64
	created  []domain.ProductDraft
}

func newCatalogMock(products ...domain.Product) *CatalogMock {
	m := &CatalogMock{products: make(map[int64]domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (c *CatalogMock) FetchAll(context.Context) ([]domain.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make([]domain.Product, 0, len(c.products))
	for id := int64(1); len(out) < len(c.products); id++ {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *CatalogMock) FetchOne(_ context.Context, id int64) (domain.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return domain.Product{}, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, &catalog.Error{Op: "fetch_one", Kind: catalog.KindNotFound, StatusCode: 404}
	}
	return p, nil
}

func (c *CatalogMock) Create(_ context.Context, d domain.ProductDraft) (domain.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return domain.Product{}, c.err
	}
	c.created = append(c.created, d)
	return domain.Product{ID: 21, Title: d.Title, Description: d.Description, Category: d.Category, Price: d.Price, Image: d.Image}, nil
}

func (c *CatalogMock) Update(_ context.Context, id int64, d domain.ProductDraft) (domain.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return domain.Product{}, c.err
	}
	return domain.Product{ID: id, Title: d.Title, Description: d.Description, Category: d.Category, Price: d.Price, Image: d.Image}, nil
}

func (c *CatalogMock) Delete(_ context.Context, id int64) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return c.err
	}
	c.deleted = append(c.deleted, id)
	return nil
}
