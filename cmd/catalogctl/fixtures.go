package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
)

type catalogFile struct {
	Items []catalog.Item `yaml:"items"`
}

// loadCatalog reads a YAML fixture and checks it the same way a draft commit
// would. Items without an id get a fresh one.
func loadCatalog(path string) ([]catalog.Item, error) {
	if path == "" {
		return nil, fmt.Errorf("--catalog is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(raw)
}

func parseCatalog(raw []byte) ([]catalog.Item, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	refs := make([]string, len(file.Items))
	var errs error
	for i := range file.Items {
		if file.Items[i].ID == uuid.Nil {
			file.Items[i].ID = uuid.New()
		}
		refs[i] = "items[" + strconv.Itoa(i) + "]"
		errs = multierr.Append(errs, catalog.ValidateItem(refs[i], file.Items[i]))
	}
	errs = multierr.Append(errs, catalog.ValidateAlignment(refs, file.Items))
	if errs != nil {
		return nil, fmt.Errorf("invalid catalog: %w", errs)
	}
	return file.Items, nil
}
