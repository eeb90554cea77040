package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-catalog/api/responses"
	"github.com/angelmondragon/storefront-catalog/api/validators"
	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

// CatalogSource serves the cached live item list.
type CatalogSource interface {
	Items(ctx context.Context) ([]catalog.Item, error)
}

type dictionaryResponse struct {
	Attributes   []catalog.Entry `json:"attributes"`
	LeadCategory *catalog.Entry  `json:"leadCategory,omitempty"`
}

type suggestResponse struct {
	Name       string `json:"name"`
	Suggestion string `json:"suggestion,omitempty"`
	Found      bool   `json:"found"`
}

func CatalogDictionary(src CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := loadItems(r.Context(), src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dict := catalog.BuildDictionary(items)
		resp := dictionaryResponse{Attributes: dict.Entries()}
		if lead, ok := dict.GlobalLeadCategory(); ok {
			resp.LeadCategory = &lead
		}
		responses.WriteSuccess(w, resp)
	}
}

// CatalogGroups lists the storefront display groups; sold-out variants are hidden.
func CatalogGroups(src CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := loadItems(r.Context(), src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.Group(items))
	}
}

// CatalogFacets expands the drill-down menu over purchasable items.
func CatalogFacets(src CatalogSource, rootOnlyDefault bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rootOnly, err := validators.ParseQueryBool(r, "root_only", rootOnlyDefault)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := loadItems(r.Context(), src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, catalog.BuildTree(catalog.Purchasable(items), rootOnly))
	}
}

func CatalogSearch(src CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := loadItems(r.Context(), src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query().Get("q")
		responses.WriteSuccess(w, catalog.Group(catalog.SearchByName(items, query)))
	}
}

// CatalogSuggest proposes the closest known attribute name for a typed one.
func CatalogSuggest(src CatalogSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "name is required").
				WithDetails(map[string]any{"field": "name"}))
			return
		}
		items, err := loadItems(r.Context(), src)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		suggestion, ok := catalog.Suggest(name, catalog.BuildDictionary(items).Vocabulary())
		responses.WriteSuccess(w, suggestResponse{Name: name, Suggestion: suggestion, Found: ok})
	}
}

func loadItems(ctx context.Context, src CatalogSource) ([]catalog.Item, error) {
	if src == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable")
	}
	items, err := src.Items(ctx)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	return items, nil
}
