// Copyright (c) 2020 Mercari, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package normalize

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.mercari.io/schemanorm/models"
)

// ErrUnknownDialect is returned by New for a dialect nobody registered.
var ErrUnknownDialect = errors.New("unknown dialect")

// Normalizer converts the SQL text of one dialect into a Document.
//
// On error the returned Document is nil; semantic problems are reported as
// *Error.
type Normalizer interface {
	Normalize(src string) (*models.Document, error)
}

// Options configures a Normalizer.
type Options struct {
	// DefaultSchema replaces the dialect's implicit schema, if it has one.
	DefaultSchema string
}

// Factory creates a Normalizer for one dialect.
type Factory func(opts Options) Normalizer

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a dialect available to New. It panics when name is
// registered twice.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("normalize: dialect %q registered twice", name))
	}
	registry[name] = f
}

// New returns the Normalizer registered as name.
func New(name string, opts Options) (Normalizer, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return f(opts), nil
}

// Dialects returns the registered dialect names, sorted.
func Dialects() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
