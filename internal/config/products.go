package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

// Format is the encoding of a product list.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// LoadProductsFile reads a product list. .yaml and .yml files are YAML, anything else JSON.
func LoadProductsFile(path string) ([]stock.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return ParseProducts(data, format)
}

// ParseProducts decodes a list of flat objects: {"name": ..., "<retailer>": "<id>", ...}.
// Identifiers may be strings or numbers and are kept verbatim. Empty or null means absent.
func ParseProducts(data []byte, format Format) ([]stock.Product, error) {
	var (
		raw []map[string]string
		err error
	)
	switch format {
	case FormatYAML:
		raw, err = decodeYAML(data)
	default:
		raw, err = decodeJSON(data)
	}
	if err != nil {
		return nil, err
	}

	products := make([]stock.Product, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, fields := range raw {
		name := strings.TrimSpace(fields["name"])
		if name == "" {
			return nil, fmt.Errorf("product %d: missing name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("product %d: duplicate name %q", i, name)
		}
		seen[name] = true

		p := stock.Product{Name: name, IDs: make(map[stock.RetailerKey]string)}
		keys := make(map[stock.RetailerKey]bool, len(fields))
		for k, v := range fields {
			if k == "name" {
				continue
			}
			key := stock.RetailerKey(strings.ToLower(k))
			if !stock.IsKnown(key) {
				return nil, fmt.Errorf("product %q: unknown retailer %q", name, k)
			}
			if keys[key] {
				return nil, fmt.Errorf("product %q: retailer %q given more than once", name, key)
			}
			keys[key] = true
			if v = strings.TrimSpace(v); v != "" {
				p.IDs[key] = v
			}
		}
		products = append(products, p)
	}
	return products, nil
}

func decodeJSON(data []byte) ([]map[string]string, error) {
	var raw []map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	out := make([]map[string]string, 0, len(raw))
	for i, obj := range raw {
		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			switch tv := v.(type) {
			case nil:
			case string:
				fields[k] = tv
			case json.Number:
				fields[k] = tv.String()
			default:
				return nil, fmt.Errorf("product %d: field %q must be a string or number", i, k)
			}
		}
		out = append(out, fields)
	}
	return out, nil
}

func decodeYAML(data []byte) ([]map[string]string, error) {
	var raw []map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	out := make([]map[string]string, 0, len(raw))
	for i, obj := range raw {
		fields := make(map[string]string, len(obj))
		for k, node := range obj {
			if node.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("product %d: field %q must be a string or number", i, k)
			}
			if node.ShortTag() == "!!null" {
				continue
			}
			fields[k] = node.Value
		}
		out = append(out, fields)
	}
	return out, nil
}
