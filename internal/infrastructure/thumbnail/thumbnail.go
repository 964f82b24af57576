// Package thumbnail implements D6: a best-effort preview image
// generated at finalize time for image uploads, grounded on the
// teacher's imaging.Fit/imaging.Save resize pattern.
package thumbnail

import (
	"fmt"
	"log"

	"github.com/disintegration/imaging"

	"tusflow/pkg/helper"
)

const suffix = ".thumb.jpg"

type Generator struct {
	MaxDim int
}

func New(maxDim int) *Generator {
	if maxDim <= 0 {
		maxDim = 320
	}
	return &Generator{MaxDim: maxDim}
}

// ShouldGenerate reports whether finalPath warrants a thumbnail, based
// on the filetype metadata hint (preferred) or the file's extension.
func (g *Generator) ShouldGenerate(finalPath, filetypeHint string) bool {
	if filetypeHint != "" {
		return helper.IsImageMIME(filetypeHint)
	}
	return helper.IsImageFilename(finalPath)
}

// Generate writes a Lanczos-resized JPEG preview at finalPath+suffix,
// capped to MaxDim on its longest side. Run this from a goroutine at
// the finalize call site — failures are logged only, never surfaced to
// the HTTP client.
func (g *Generator) Generate(finalPath string) {
	img, err := imaging.Open(finalPath)
	if err != nil {
		log.Printf("thumbnail: open %s: %v", finalPath, err)
		return
	}

	resized := imaging.Fit(img, g.MaxDim, g.MaxDim, imaging.Lanczos)

	out := finalPath + suffix
	if err := imaging.Save(resized, out, imaging.JPEGQuality(85)); err != nil {
		log.Printf("thumbnail: save %s: %v", out, err)
		return
	}
}

// OutputPath returns the path Generate would write to for finalPath.
func OutputPath(finalPath string) string {
	return fmt.Sprintf("%s%s", finalPath, suffix)
}
