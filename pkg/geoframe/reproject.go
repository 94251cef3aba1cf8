package geoframe

import (
	"github.com/matzehuels/geokit/pkg/errors"
	"github.com/matzehuels/geokit/pkg/reproject"
)

// Reproject returns a copy of f with every geometry converted from src to
// dst. Both CRS strings are resolved with reproject.ParseCRS.
func Reproject(f *Frame, src, dst string) (*Frame, error) {
	tr, err := reproject.New(src, dst)
	if err != nil {
		return nil, err
	}
	return Transform(f, tr)
}

// Transform returns a copy of f with every geometry passed through tr.
// Features without geometry are copied as they are.
func Transform(f *Frame, tr *reproject.Transformer) (*Frame, error) {
	out := f.Clone()
	for i, ft := range out.Features {
		if ft.Geometry == nil {
			continue
		}
		g, err := tr.Geometry(ft.Geometry)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "feature %s", ft.ID)
		}
		out.Features[i].Geometry = g
	}
	return out, nil
}
