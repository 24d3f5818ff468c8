package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jhump/annoinject/processor"
)

type optionsFile struct {
	Options map[string]interface{} `yaml:"options" toml:"options"`
}

// LoadOptions merges processor options from files and from "key=value"
// flags. Files are read in order and flags come last, so later sources win.
//
// A ".env" file is a list of KEY=value lines. A ".yaml", ".yml" or ".toml"
// file holds an "options" table:
//
//    options:
//      annoinject.processing.incremental: true
//      annoinject.processing.annotations: [example.com/app.*, example.com/web.Handler]
//
// Non-string values are converted: lists are joined with commas.
func LoadOptions(files []string, flags []string) (processor.Options, error) {
	opts := processor.Options{}
	for _, f := range files {
		vals, err := readOptionsFile(f)
		if err != nil {
			return nil, err
		}
		for k, v := range vals {
			opts[k] = v
		}
	}
	for _, flag := range flags {
		k, v, _ := strings.Cut(flag, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("invalid option %q: key must not be empty", flag)
		}
		opts[k] = v
	}
	return opts, nil
}

func readOptionsFile(name string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".env":
		vals, err := godotenv.Read(name)
		if err != nil {
			return nil, fmt.Errorf("reading options file %s: %w", name, err)
		}
		return vals, nil
	case ".yaml", ".yml":
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading options file %s: %w", name, err)
		}
		var f optionsFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing options file %s: %w", name, err)
		}
		return flatten(f.Options), nil
	case ".toml":
		var f optionsFile
		if _, err := toml.DecodeFile(name, &f); err != nil {
			return nil, fmt.Errorf("parsing options file %s: %w", name, err)
		}
		return flatten(f.Options), nil
	default:
		return nil, fmt.Errorf("options file %s: unsupported format (want .env, .yaml, .yml or .toml)", name)
	}
}

// flatten turns nested tables into dotted keys, so that TOML's
// annoinject.processing.incremental = true means what it looks like.
func flatten(m map[string]interface{}) map[string]string {
	vals := map[string]string{}
	flattenInto(vals, "", m)
	return vals
}

func flattenInto(vals map[string]string, prefix string, m map[string]interface{}) {
	for k, v := range m {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			flattenInto(vals, k, sub)
			continue
		}
		vals[k] = optionString(v)
	}
}

func optionString(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = optionString(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}
