// Package config holds the moving parts of a hot-reloadable configuration
// file: a Loader that reads and decodes it, a Store that publishes the
// decoded value to every holder, and a Watcher that polls the file's
// modification time and drives reloads.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Validatable is an optional interface that config structs can implement
// to validate themselves before being swapped in.
type Validatable interface {
	Validate() error
}

// Decoder turns raw file bytes into a value.
type Decoder interface {
	Format() string
	Decode(data []byte, v any) error
}

// StrictDecoder is implemented by decoders that can reject keys the target
// type does not declare.
type StrictDecoder interface {
	Decoder
	DecodeStrict(data []byte, v any) error
}

// Built-in decoders.
var (
	JSON Decoder = jsonDecoder{}
	TOML Decoder = tomlDecoder{}
	YAML Decoder = yamlDecoder{}
)

// DecoderFor picks a decoder from the file extension. Unknown extensions
// are decoded as JSON.
func DecoderFor(path string) Decoder {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

type jsonDecoder struct{}

func (jsonDecoder) Format() string { return "json" }

func (jsonDecoder) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonDecoder) DecodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

type tomlDecoder struct{}

func (tomlDecoder) Format() string { return "toml" }

func (tomlDecoder) Decode(data []byte, v any) error {
	return toml.Unmarshal(data, v)
}

func (tomlDecoder) DecodeStrict(data []byte, v any) error {
	md, err := toml.Decode(string(data), v)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

type yamlDecoder struct{}

func (yamlDecoder) Format() string { return "yaml" }

func (yamlDecoder) Decode(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

func (yamlDecoder) DecodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Loader reads a config file and decodes it into a fresh *T.
type Loader[T any] struct {
	path     string
	decoder  Decoder
	defaults func() T
	strict   bool
	validate *validator.Validate
}

// LoaderOption configures a Loader.
type LoaderOption[T any] func(*Loader[T])

// WithDecoder overrides the extension-based decoder choice.
func WithDecoder[T any](d Decoder) LoaderOption[T] {
	return func(l *Loader[T]) {
		if d != nil {
			l.decoder = d
		}
	}
}

// WithDefaults decodes every load on top of a deep copy of defaults, so
// keys absent from the file keep their default value. Loads never share
// slices or maps with defaults or with each other.
func WithDefaults[T any](defaults T) LoaderOption[T] {
	defaults = deepCopy(defaults)
	return func(l *Loader[T]) {
		l.defaults = func() T { return deepCopy(defaults) }
	}
}

// WithDefaultsFunc is like WithDefaults but calls fn for the base value of
// every load. fn must return a value that shares nothing with earlier
// results.
func WithDefaultsFunc[T any](fn func() T) LoaderOption[T] {
	return func(l *Loader[T]) { l.defaults = fn }
}

// WithStrict makes keys unknown to T a decode error.
func WithStrict[T any]() LoaderOption[T] {
	return func(l *Loader[T]) { l.strict = true }
}

// WithValidator runs struct tag validation on every decoded value.
func WithValidator[T any](v *validator.Validate) LoaderOption[T] {
	return func(l *Loader[T]) { l.validate = v }
}

// NewLoader creates a loader for path.
func NewLoader[T any](path string, opts ...LoaderOption[T]) *Loader[T] {
	l := &Loader[T]{
		path:    path,
		decoder: DecoderFor(path),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Path returns the file the loader reads.
func (l *Loader[T]) Path() string { return l.path }

// Format returns the name of the decoder in use.
func (l *Loader[T]) Format() string { return l.decoder.Format() }

// Load reads and decodes the file. It fails with *IOError when the file
// cannot be read and *DecodeError when the content does not decode or
// validate.
func (l *Loader[T]) Load() (*T, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &IOError{Path: l.path, Op: "reading", Err: err}
	}

	cfg := new(T)
	if l.defaults != nil {
		*cfg = l.defaults()
	}

	decode := l.decoder.Decode
	if sd, ok := l.decoder.(StrictDecoder); ok && l.strict {
		decode = sd.DecodeStrict
	}
	if err := decode(data, cfg); err != nil {
		return nil, &DecodeError{Path: l.path, Format: l.decoder.Format(), Err: err}
	}

	if l.validate != nil {
		if err := l.validate.Struct(cfg); err != nil {
			return nil, &DecodeError{Path: l.path, Format: l.decoder.Format(), Validation: true, Err: err}
		}
	}
	if v, ok := any(cfg).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, &DecodeError{Path: l.path, Format: l.decoder.Format(), Validation: true, Err: err}
		}
	}

	return cfg, nil
}

// Load is a shorthand for NewLoader(path, WithDecoder(dec)).Load().
// A nil dec picks the decoder from the extension.
func Load[T any](path string, dec Decoder) (*T, error) {
	return NewLoader(path, WithDecoder[T](dec)).Load()
}

var epoch = time.Unix(0, 0)

// ModTime returns the file's modification time in whole seconds since the
// Unix epoch.
func ModTime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, &IOError{Path: path, Op: "stat", Err: err}
	}
	mt := info.ModTime()
	if mt.Before(epoch) {
		return 0, &ClockError{Path: path, ModTime: mt}
	}
	return mt.Unix(), nil
}
