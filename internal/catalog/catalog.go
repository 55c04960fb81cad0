// Package catalog serves the product list: a cached load, search/filter/sort views and the
// product detail with its image gallery.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"storefront/internal/docstore"
	"storefront/internal/models"
)

const productsCollection = "products"

var ErrProductNotFound = errors.New("product not found")

var userMessages = map[error]string{
	ErrProductNotFound: "Error: Product not found.",
}

// UserMessage returns the text shown to shoppers for a catalog error, or "".
func UserMessage(err error) string {
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return ""
}

// FavoriteChecker reports whether uid has favorited productID.
type FavoriteChecker interface {
	IsFavorite(ctx context.Context, uid, productID string) (bool, error)
}

type Catalog struct {
	store docstore.Store

	mu       sync.Mutex
	products []models.Product
	loaded   bool
}

func New(store docstore.Store) *Catalog {
	return &Catalog{store: store}
}

func ProductPath(id string) string {
	return docstore.Join(productsCollection, id)
}

// Load reads every product once. Later calls return the cached list until Invalidate.
func (c *Catalog) Load(ctx context.Context) ([]models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.products, nil
	}

	docs, err := c.store.GetAll(ctx, productsCollection, docstore.Query{})
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeProduct(doc)
		if err != nil {
			log.Println("[CATALOG] [ERROR] skipping malformed product:", doc.ID, err)
			continue
		}
		products = append(products, p)
	}

	log.Printf("[CATALOG] [INFO] loaded %d products", len(products))
	c.products = products
	c.loaded = true
	return products, nil
}

func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.products = nil
	c.loaded = false
	c.mu.Unlock()
}

// Product fetches a single product from the store, bypassing the cache.
func (c *Catalog) Product(ctx context.Context, id string) (models.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		return models.Product{}, ErrProductNotFound
	}
	doc, err := c.store.Get(ctx, ProductPath(id))
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Product{}, ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("load product: %w", err)
	}
	return decodeProduct(doc)
}

func decodeProduct(doc docstore.Document) (models.Product, error) {
	var p models.Product
	if err := doc.DataTo(&p); err != nil {
		return models.Product{}, err
	}
	p.ID = doc.ID
	return p, nil
}

type Detail struct {
	Product   models.Product `json:"product"`
	Gallery   []string       `json:"gallery"`
	Favorited bool           `json:"favorited"`
}

// Detail loads a product with its gallery. Favorited is only looked up when uid is set.
func (c *Catalog) Detail(ctx context.Context, favorites FavoriteChecker, uid, productID string) (Detail, error) {
	p, err := c.Product(ctx, productID)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{Product: p, Gallery: Variants(p.ImageName)}
	if uid != "" && favorites != nil {
		favorited, err := favorites.IsFavorite(ctx, uid, p.ID)
		if err != nil {
			return Detail{}, err
		}
		detail.Favorited = favorited
	}
	return detail, nil
}

// Variants derives the three gallery images of a product: base.ext, base_2.ext, base_3.ext.
func Variants(imageName string) []string {
	ext := path.Ext(imageName)
	base := strings.TrimSuffix(imageName, ext)
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "jpg"
	}
	return []string{
		base + "." + ext,
		base + "_2." + ext,
		base + "_3." + ext,
	}
}

// Seed writes products as given. Existing products with the same id are replaced.
func (c *Catalog) Seed(ctx context.Context, products []models.Product) error {
	writes := make([]docstore.Write, 0, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("product %q has no id", p.Name)
		}
		fields, err := docstore.Encode(p)
		if err != nil {
			return err
		}
		writes = append(writes, docstore.SetWrite(ProductPath(p.ID), fields))
	}
	if err := c.store.Commit(ctx, writes); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	c.Invalidate()
	return nil
}

const (
	SortDefault    = "default"
	SortPrice      = "price"
	SortPopularity = "popularity"

	All = "all"
)

// View is the browsing state of one client: search text, filters and sort key.
type View struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Color    string `form:"color"`
	Sort     string `form:"sort"`
}

func (v View) normalized() View {
	v.Search = strings.ToLower(strings.TrimSpace(v.Search))
	if v.Category == "" {
		v.Category = All
	}
	if v.Color == "" {
		v.Color = All
	}
	if v.Sort == "" {
		v.Sort = SortDefault
	}
	return v
}

// Filter applies search, category and color then sorts. The input slice is not modified.
func Filter(products []models.Product, view View) []models.Product {
	view = view.normalized()

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if view.Search != "" && !strings.Contains(strings.ToLower(p.Name), view.Search) {
			continue
		}
		if view.Category != All && p.Category != view.Category {
			continue
		}
		if view.Color != All && p.Color != view.Color {
			continue
		}
		out = append(out, p)
	}

	switch view.Sort {
	case SortPrice:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPopularity:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Popularity > out[j].Popularity })
	default:
		names := collate.New(language.English, collate.IgnoreWidth)
		sort.SliceStable(out, func(i, j int) bool { return names.CompareString(out[i].Name, out[j].Name) < 0 })
	}
	return out
}
