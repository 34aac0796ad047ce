package mock

import "github.com/fwojciec/wikidigest"

var _ wikidigest.Converter = (*Converter)(nil)

// Converter is a mock implementation of wikidigest.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
