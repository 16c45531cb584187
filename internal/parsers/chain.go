package parsers

// Decoder tries to interpret raw as one record shape. ok is false when raw
// does not structurally match the shape.
type Decoder[T any] struct {
	Name   string
	Decode func(raw []byte) (v T, ok bool)
}

// Chain is an ordered list of decoders for a source with several plausible
// record shapes. The first decoder that matches wins; results of different
// decoders are never merged.
type Chain[T any] []Decoder[T]

// Decode returns the value of the first matching decoder and its name.
func (c Chain[T]) Decode(raw []byte) (v T, name string, ok bool) {
	for _, d := range c {
		if got, matched := d.Decode(raw); matched {
			return got, d.Name, true
		}
	}
	var zero T
	return zero, "", false
}
