// Package variables implements typed, validated, persisted and observable
// configuration values. A Variable validates every assignment, and a
// Manager persists each one under its name whenever it changes.
package variables

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrValidation is returned when a value fails its type, option or
	// format constraints. The previous value is retained.
	ErrValidation = errors.New("invalid value")
	// ErrRange is a validation failure against a numeric range.
	ErrRange = fmt.Errorf("%w: out of range", ErrValidation)
	// ErrUnknown is returned for lookups of undeclared variables.
	ErrUnknown = errors.New("unknown variable")
)

// Typecode is the numeric type tag exposed to clients.
type Typecode int

const (
	TypeBoolean       Typecode = 1
	TypeInteger       Typecode = 2
	TypeFloating      Typecode = 3
	TypeOption        Typecode = 4
	TypeColorSequence Typecode = 5
	TypeString        Typecode = 6
)

// Responder is notified synchronously after every value change.
type Responder interface {
	Handle(v Variable)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(v Variable)

func (f ResponderFunc) Handle(v Variable) { f(v) }

// Dict is the client-facing description of a variable.
type Dict struct {
	Typecode    Typecode       `json:"typecode"`
	ID          string         `json:"id"`
	Description *string        `json:"description"`
	Default     string         `json:"default"`
	Value       string         `json:"value"`
	Data        map[string]any `json:"data"`
}

// Variable is the type-erased view a Manager and the control API work with.
type Variable interface {
	Name() string
	Typecode() Typecode
	Description() string
	// Encoded returns the serialized current value.
	Encoded() string
	// SetEncoded deserializes s, validates it and assigns it.
	SetEncoded(s string) error
	AddResponder(r Responder)
	Notify()
	Dict() Dict

	// restore assigns a serialized value without notifying.
	restore(s string) error
}

type codec[T any] struct {
	validate func(T) error
	encode   func(T) string
	decode   func(string) (T, error)
	equal    func(a, b T) bool
	data     func() map[string]any
}

// Value is a Variable holding a T. The concrete kinds are the aliases
// Boolean, Integer, Floating, Choice, ColorSequence and String.
type Value[T any] struct {
	name        string
	description string
	typecode    Typecode
	codec       codec[T]

	mu         sync.RWMutex
	def        T
	value      T
	responders []Responder
}

func newValue[T any](tc Typecode, name string, def T, c codec[T], o *options) (*Value[T], error) {
	v := &Value[T]{
		name:        name,
		description: o.description,
		typecode:    tc,
		codec:       c,
		def:         def,
		value:       def,
		responders:  make([]Responder, 0, len(o.responders)+1),
	}
	if err := c.validate(def); err != nil {
		return nil, fmt.Errorf("default for %q: %w", name, err)
	}
	v.responders = append(v.responders, o.responders...)
	return v, nil
}

func (v *Value[T]) Name() string        { return v.name }
func (v *Value[T]) Typecode() Typecode  { return v.typecode }
func (v *Value[T]) Description() string { return v.description }

// Default returns the declared default.
func (v *Value[T]) Default() T { return v.def }

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Validate checks x without assigning it.
func (v *Value[T]) Validate(x T) error {
	if err := v.codec.validate(x); err != nil {
		return fmt.Errorf("%s: %w", v.name, err)
	}
	return nil
}

// Set validates x, assigns it and notifies every responder once.
func (v *Value[T]) Set(x T) error {
	if err := v.Validate(x); err != nil {
		return err
	}
	v.mu.Lock()
	v.value = x
	v.mu.Unlock()
	v.Notify()
	return nil
}

// Serialize encodes x in the persisted form.
func (v *Value[T]) Serialize(x T) string { return v.codec.encode(x) }

// Deserialize decodes a persisted value. It does not validate.
func (v *Value[T]) Deserialize(s string) (T, error) {
	x, err := v.codec.decode(s)
	if err != nil {
		return x, fmt.Errorf("%s: %w", v.name, err)
	}
	return x, nil
}

func (v *Value[T]) Encoded() string { return v.codec.encode(v.Get()) }

func (v *Value[T]) SetEncoded(s string) error {
	x, err := v.Deserialize(s)
	if err != nil {
		return err
	}
	return v.Set(x)
}

func (v *Value[T]) restore(s string) error {
	x, err := v.Deserialize(s)
	if err != nil {
		return err
	}
	if err := v.Validate(x); err != nil {
		return err
	}
	v.mu.Lock()
	v.value = x
	v.mu.Unlock()
	return nil
}

// Equal reports whether x equals the current value.
func (v *Value[T]) Equal(x T) bool { return v.codec.equal(v.Get(), x) }

func (v *Value[T]) AddResponder(r Responder) {
	v.mu.Lock()
	v.responders = append(v.responders, r)
	v.mu.Unlock()
}

func (v *Value[T]) Notify() {
	v.mu.RLock()
	rs := append([]Responder(nil), v.responders...)
	v.mu.RUnlock()
	for _, r := range rs {
		r.Handle(v)
	}
}

func (v *Value[T]) Dict() Dict {
	d := Dict{
		Typecode: v.typecode,
		ID:       v.name,
		Default:  v.codec.encode(v.def),
		Value:    v.Encoded(),
		Data:     map[string]any{},
	}
	if v.description != "" {
		desc := v.description
		d.Description = &desc
	}
	if v.codec.data != nil {
		d.Data = v.codec.data()
	}
	return d
}

type options struct {
	description  string
	responders   []Responder
	defaultRange *[2]float64
	allowedRange *[2]float64
	tags         [2]string
}

// Option configures a variable at declaration.
type Option func(*options)

// WithDescription sets the human readable description.
func WithDescription(s string) Option {
	return func(o *options) { o.description = s }
}

// WithResponders registers responders at construction.
func WithResponders(rs ...Responder) Option {
	return func(o *options) { o.responders = append(o.responders, rs...) }
}

// WithRange sets the closed interval values must fall in. Numeric kinds only.
func WithRange(min, max float64) Option {
	return func(o *options) { o.allowedRange = &[2]float64{min, max} }
}

// WithDefaultRange sets the range a client should present. It does not
// constrain values.
func WithDefaultRange(min, max float64) Option {
	return func(o *options) { o.defaultRange = &[2]float64{min, max} }
}

// WithTags sets the display labels for false and true.
func WithTags(off, on string) Option {
	return func(o *options) { o.tags = [2]string{off, on} }
}

func collect(opts []Option) *options {
	o := &options{tags: [2]string{"False", "True"}}
	for _, fn := range opts {
		fn(o)
	}
	return o
}
