// Package jit makes the "compile on first call, reuse afterwards" behavior
// of a tracing JIT an explicit capability: a cache keyed by compiler name
// and argument signature, holding shape-specialized programs. The first
// invocation for a signature pays the compilation cost; every later
// invocation with a matching signature reuses the cached program.
package jit

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/afairless/grayscale-bench/convert"
)

// Signature identifies the argument types a program was compiled for.
type Signature struct {
	Shape tensor.Shape
	Dtype tensor.Dtype
}

// SignatureOf derives the compilation signature of an input image.
func SignatureOf(img *tensor.Dense) Signature {
	return Signature{Shape: img.Shape().Clone(), Dtype: img.Dtype()}
}

// Key returns the cache key for the signature.
func (s Signature) Key() string {
	return fmt.Sprintf("%v/%v", s.Shape, s.Dtype)
}

// Program is a compiled, shape-specialized conversion routine.
type Program interface {
	Run(img *tensor.Dense) (*tensor.Dense, error)
}

// Compiler lowers the conversion formula for a specific input signature.
type Compiler interface {
	Name() string
	Compile(sig Signature) (Program, error)
}

// Cache holds compiled programs for the lifetime of the process. Entries
// are added lazily and never evicted. The cache is owned by the driver and
// injected wherever compiled conversions are built, so tests can reset it
// to control warm/cold-start behavior deterministically.
type Cache struct {
	mu       sync.Mutex
	programs map[string]Program
	hits     int
	misses   int
}

// NewCache creates an empty compilation cache.
func NewCache() *Cache {
	return &Cache{programs: make(map[string]Program)}
}

// Program returns the compiled program for the compiler and signature,
// invoking the compiler on first use. The boolean reports whether the
// program came from cache.
func (c *Cache) Program(comp Compiler, sig Signature) (Program, bool, error) {
	key := comp.Name() + ":" + sig.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.programs[key]; ok {
		c.hits++
		return p, true, nil
	}

	p, err := comp.Compile(sig)
	if err != nil {
		return nil, false, errors.Wrapf(err, "compiling %s for signature %s", comp.Name(), sig.Key())
	}
	c.programs[key] = p
	c.misses++
	return p, false, nil
}

// Reset drops every compiled program, forcing recompilation on next use.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs = make(map[string]Program)
	c.hits = 0
	c.misses = 0
}

// Len reports how many programs are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.programs)
}

// Stats reports cache lookups that were served from cache versus compiled.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Compiled wraps a compiler into the conversion contract. The returned
// function validates its input, then compiles or reuses the program for the
// input's signature.
func Compiled(cache *Cache, comp Compiler) convert.Func {
	return func(img *tensor.Dense) (*tensor.Dense, error) {
		if err := convert.ValidateImage(img); err != nil {
			return nil, err
		}
		prog, _, err := cache.Program(comp, SignatureOf(img))
		if err != nil {
			return nil, err
		}
		return prog.Run(img)
	}
}
