// Package colormosaic builds photo mosaics from a collection of images, each
// reduced to a single representative color.
//
// The collection is first ordered into a color-continuous chain (see
// PaletteSequencer), which is then searched with an approximate bisection
// (see NearestColorIndex) to find a source image for every tile of a target
// image. Everything around this engine, that is reading images, averaging
// colors, dividing the target into tiles, compositing and caching results on
// the filesystem, is provided as well.
//
// It ships with an executable program to generate mosaic images and
// administrate image databases on the filesystem.
package colormosaic
