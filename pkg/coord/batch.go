package coord

import (
	"context"
	"runtime"
	"sync"
)

// ConvertPoints applies fn to every point, splitting the batch into one chunk
// per CPU. Results and errors are positionally aligned with pts: a failing
// point leaves a zero value in out and its error in errs[i], and the rest of
// the batch still converts.
//
// The returned error is non-nil only when ctx is cancelled before every
// chunk has finished; out and errs are then partially filled.
func ConvertPoints[In, Out any](ctx context.Context, pts []In, fn func(In) (Out, error)) ([]Out, []error, error) {
	total := len(pts)
	out := make([]Out, total)
	errs := make([]error, total)
	if total == 0 {
		return out, errs, ctx.Err()
	}

	numCPU := max(runtime.NumCPU(), 1)
	chunkSize := (total + numCPU - 1) / numCPU

	var wg sync.WaitGroup
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if (i-s)%256 == 0 && ctx.Err() != nil {
					return
				}
				out[i], errs[i] = fn(pts[i])
			}
		}(start, end)
	}
	wg.Wait()

	return out, errs, ctx.Err()
}

// ToWebMercator converts a batch of geographic points. See [ConvertPoints].
func ToWebMercator(ctx context.Context, pts []LatLon) ([]XY, []error, error) {
	return ConvertPoints(ctx, pts, LatLonToWebMercator)
}

// ToLatLon converts a batch of Web Mercator points. See [ConvertPoints].
func ToLatLon(ctx context.Context, pts []XY) ([]LatLon, []error, error) {
	return ConvertPoints(ctx, pts, WebMercatorToLatLon)
}

// FirstError returns the first non-nil error in errs and its index, or -1.
func FirstError(errs []error) (int, error) {
	for i, err := range errs {
		if err != nil {
			return i, err
		}
	}
	return -1, nil
}
