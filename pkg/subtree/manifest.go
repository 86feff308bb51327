// SPDX-License-Identifier: MPL-2.0

package subtree

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
)

var (
	errVersionMissing    = errors.New("version field missing")
	errInvalidJSON       = errors.New("invalid JSON document")
	errNotScalarVersion  = errors.New("version field is not a scalar")
	errUnsupportedFormat = errors.New("unsupported manifest format")
)

// ManifestVersion decodes a manifest document and returns the value at the
// dotted versionKey. The document format is chosen from the extension of name:
// .json, .toml, .yaml or .yml.
//
// A document that decodes but lacks the field returns an error wrapping
// errVersionMissing; callers treat that as DefaultVersion without a warning.
func ManifestVersion(name string, data []byte, versionKey string) (string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return jsonVersion(data, versionKey)
	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("decoding TOML: %w", err)
		}
		return lookupVersion(doc, versionKey)
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("decoding YAML: %w", err)
		}
		return lookupVersion(doc, versionKey)
	default:
		return "", fmt.Errorf("%w: %s", errUnsupportedFormat, name)
	}
}

func jsonVersion(data []byte, versionKey string) (string, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return "", errInvalidJSON
	}

	res := gjson.GetBytes(data, versionKey)
	switch res.Type {
	case gjson.Null:
		return "", errVersionMissing
	case gjson.String:
		if res.Str == "" {
			return "", errVersionMissing
		}
		return res.Str, nil
	case gjson.Number, gjson.True, gjson.False:
		return res.Raw, nil
	case gjson.JSON:
		return "", errNotScalarVersion
	}
	return "", errVersionMissing
}

// lookupVersion walks a decoded document along the dotted key.
func lookupVersion(doc map[string]any, versionKey string) (string, error) {
	var cur any = doc
	for part := range strings.SplitSeq(versionKey, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", errVersionMissing
		}
		cur, ok = m[part]
		if !ok {
			return "", errVersionMissing
		}
	}

	switch v := cur.(type) {
	case nil:
		return "", errVersionMissing
	case string:
		if v == "" {
			return "", errVersionMissing
		}
		return v, nil
	case map[string]any, []any:
		return "", errNotScalarVersion
	default:
		return fmt.Sprint(v), nil
	}
}
