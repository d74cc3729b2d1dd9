package synth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"math/rand"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

//go:embed samples/*.html
var builtinSamples embed.FS

// Sample is a page and its screenshot.
type Sample struct {
	Name       string
	HTML       string
	Screenshot []byte // PNG
}

// Dataset yields samples for synthetic tasks.
type Dataset interface {
	Next(ctx context.Context) (Sample, error)
	Len() int
}

// fsDataset serves name.html files from a filesystem, paired with name.png
// when present.
type fsDataset struct {
	mu      sync.Mutex
	samples []Sample
	rng     *rand.Rand
}

// BuiltinDataset returns the embedded sample pages.
func BuiltinDataset() (Dataset, error) {
	sub, err := fs.Sub(builtinSamples, "samples")
	if err != nil {
		return nil, err
	}
	return loadFS(sub)
}

// DirDataset loads html/png pairs from dir.
func DirDataset(dir string) (Dataset, error) {
	return loadFS(os.DirFS(dir))
}

func loadFS(fsys fs.FS) (Dataset, error) {
	names, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	sort.Strings(names)

	ds := &fsDataset{rng: rand.New(rand.NewSource(time.Now().UnixNano()))} //nolint:gosec // sample choice is not security sensitive
	for _, name := range names {
		markup, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		base := strings.TrimSuffix(name, path.Ext(name))
		shot, err := fs.ReadFile(fsys, base+".png")
		if err != nil {
			shot, err = placeholderPNG(markup)
			if err != nil {
				return nil, fmt.Errorf("render placeholder for %s: %w", name, err)
			}
		}
		ds.samples = append(ds.samples, Sample{Name: base, HTML: string(markup), Screenshot: shot})
	}
	if len(ds.samples) == 0 {
		return nil, ErrEmptyDataset
	}
	return ds, nil
}

func (d *fsDataset) Next(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.samples[d.rng.Intn(len(d.samples))], nil
}

func (d *fsDataset) Len() int { return len(d.samples) }

// placeholderPNG draws a small swatch keyed by the markup hash. It stands in
// for a screenshot when a sample ships without one.
func placeholderPNG(markup []byte) ([]byte, error) {
	sum := sha256.Sum256(markup)
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			b := sum[(x+y)%len(sum)]
			img.Set(x, y, color.RGBA{R: sum[0] ^ b, G: sum[1], B: sum[2] ^ byte(x*y), A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
