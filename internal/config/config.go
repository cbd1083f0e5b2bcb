// Package config holds the validated run configuration and the YAML
// configuration-file loader used by the command line.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultFile is the configuration file looked up in the working
	// directory when --config is not given.
	DefaultFile = "picoros-typegen.yaml"
	// EnvPrefix prefixes every environment variable the tool reads.
	EnvPrefix = "PICOROS_TYPEGEN_"

	DefaultOutputDir  = "./type_descriptions"
	DefaultHeaderFile = "generated_types.h"
)

// Options is the configuration of one generation run.
type Options struct {
	PackageDirs []string `flag:"packages" validate:"dive,required,dir"`
	OutputDir   string   `flag:"output-dir" validate:"required"`
	HeaderFile  string   `flag:"header-file" validate:"required"`

	Generator     string   `flag:"generator" validate:"required_unless=SkipGenerate true"`
	GeneratorArgs []string `flag:"generator-arg"`
	TemplateDir   string   `flag:"template-dir"`
	GeneratorEnv  []string `flag:"generator-env" validate:"dive,contains=="`
	SkipGenerate  bool     `flag:"skip-generate"`

	Only              []string `flag:"only" validate:"dive,required,excludes=/"`
	LegacySuffixMatch bool     `flag:"legacy-suffix-match"`
	Verify            bool     `flag:"verify"`
	Jobs              int      `flag:"jobs" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate checks the options and reports every problem at once.
func (o *Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		messages = append(messages, ve.Field()+": "+formatValidationError(ve))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

// HeaderPath is where the header is written. A relative header file is
// placed inside the output directory.
func (o *Options) HeaderPath() string {
	if filepath.IsAbs(o.HeaderFile) {
		return o.HeaderFile
	}
	return filepath.Join(o.OutputDir, o.HeaderFile)
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "required_unless":
		return "required unless --skip-generate is set"
	case "dir":
		return fmt.Sprintf("%q is not a directory", ve.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "contains":
		return fmt.Sprintf("%q must have the form KEY=VALUE", ve.Value())
	case "excludes":
		return fmt.Sprintf("%q must be a bare namespace", ve.Value())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

// YAML is a kong.ConfigurationLoader reading flag values from a YAML
// mapping. Keys are flag names, with dashes or underscores.
func YAML(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	values := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		values[strings.ReplaceAll(k, "_", "-")] = v
	}
	return &yamlResolver{values: values}, nil
}

type yamlResolver struct {
	values map[string]interface{}
}

// Validate rejects keys that name no flag, so typos are not silently
// ignored.
func (y *yamlResolver) Validate(app *kong.Application) error {
	known := map[string]struct{}{}
	_ = kong.Visit(app, func(node kong.Visitable, next kong.Next) error {
		if f, ok := node.(*kong.Flag); ok {
			known[f.Name] = struct{}{}
		}
		return next(nil)
	})
	var unknown []string
	for k := range y.values {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown configuration keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func (y *yamlResolver) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	v, ok := y.values[flag.Name]
	if !ok || v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case []interface{}:
		out := make([]any, len(v))
		for i, el := range v {
			if !isScalar(el) {
				return nil, fmt.Errorf("list entries must be scalars, got %T", el)
			}
			out[i] = fmt.Sprint(el)
		}
		return out, nil
	default:
		if !isScalar(v) {
			return nil, fmt.Errorf("unsupported value of type %T", v)
		}
		return fmt.Sprint(v), nil
	}
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool, int, int64, uint64, float64:
		return true
	}
	return false
}
