// Package captcha renders the visual challenges shown to non-admin users
// before an invite code is issued.
package captcha

import (
	"bytes"
	"fmt"

	steambap "github.com/steambap/captcha"
)

// charPreset excludes characters that are easy to misread in a noisy image
// (0/O, 1/l, g/q and friends).
const charPreset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789abcdefhijkmnprstuvwxyz"

const (
	defaultWidth  = 160
	defaultHeight = 60
	defaultLength = 4
)

type Generator struct {
	width  int
	height int
	length int
}

func New() *Generator {
	return &Generator{
		width:  defaultWidth,
		height: defaultHeight,
		length: defaultLength,
	}
}

// Generate produces a fresh challenge: the expected answer text and a PNG
// rendering of it. The generator keeps no state between calls.
func (g *Generator) Generate() (string, []byte, error) {
	data, err := steambap.New(g.width, g.height, func(o *steambap.Options) {
		o.CharPreset = charPreset
		o.TextLength = g.length
		o.CurveNumber = 2
	})
	if err != nil {
		return "", nil, fmt.Errorf("render captcha: %w", err)
	}

	var buf bytes.Buffer
	if err = data.WriteImage(&buf); err != nil {
		return "", nil, fmt.Errorf("encode captcha image: %w", err)
	}
	return data.Text, buf.Bytes(), nil
}
