package shared

// Enum is a named, refcounted symbol-to-ordinal mapping backed by a
// shared Segment. The domain of valid symbols is fixed at
// construction; assigning or reading a value outside that domain
// fails with ErrInvalidValue rather than silently misdecoding a
// possibly-corrupted shared segment.
type Enum struct {
	seg     *Segment
	symbols []string
	index   map[string]uint64
}

// NewEnum creates or attaches to the named enum segment with the given
// ordered symbol domain. initial selects the starting symbol on first
// creation only; later attaches ignore it and observe the segment's
// current value.
func NewEnum(name string, symbols []string, initial string) (*Enum, error) {
	index := make(map[string]uint64, len(symbols))
	for i, s := range symbols {
		index[s] = uint64(i)
	}
	initOrdinal, ok := index[initial]
	if !ok {
		return nil, &ErrInvalidValue{Name: name, Value: 0}
	}

	return &Enum{
		seg:     Attach(name, initOrdinal),
		symbols: append([]string(nil), symbols...),
		index:   index,
	}, nil
}

// Value returns the current symbol. If the underlying segment holds
// an ordinal outside the declared domain (a corrupted shared
// segment), it returns an error rather than guessing.
func (e *Enum) Value() (string, error) {
	ord := e.seg.Load()
	if ord >= uint64(len(e.symbols)) {
		return "", &ErrInvalidValue{Name: e.seg.Name(), Value: ord}
	}
	return e.symbols[ord], nil
}

// Set assigns sym as the current value. Fails with ErrInvalidValue if
// sym is not part of the declared domain.
func (e *Enum) Set(sym string) error {
	ord, ok := e.index[sym]
	if !ok {
		return &ErrInvalidValue{Name: e.seg.Name(), Value: ^uint64(0)}
	}
	e.seg.Store(ord)
	return nil
}

// Increment advances the value by steps positions modulo the symbol
// domain and returns the resulting symbol.
func (e *Enum) Increment(steps int) (string, error) {
	n := uint64(len(e.symbols))
	for {
		cur := e.seg.Load()
		next := (cur + uint64(steps)) % n
		if e.seg.CompareAndSwap(cur, next) {
			return e.symbols[next], nil
		}
	}
}

// Reset returns the value to the first symbol in the declared domain.
func (e *Enum) Reset() string {
	e.seg.Store(0)
	return e.symbols[0]
}

// Destroy releases this handle's refcount on the underlying segment.
func (e *Enum) Destroy() { Detach(e.seg) }
