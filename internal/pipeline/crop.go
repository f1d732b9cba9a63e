package pipeline

import (
	"bytes"
	"image"
	"image/jpeg"
)

const coverJPEGQuality = 85

// cropFace extracts a face region from the image given a bounding box
// as [x1, y1, x2, y2]. Returns nil for a degenerate box.
func cropFace(img image.Image, bbox []float64) image.Image {
	if len(bbox) != 4 {
		return nil
	}
	bounds := img.Bounds()

	x1 := int(bbox[0])
	y1 := int(bbox[1])
	x2 := int(bbox[2])
	y2 := int(bbox[3])

	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x2 <= x1 || y2 <= y1 {
		return nil
	}

	crop := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	for cy := y1; cy < y2; cy++ {
		for cx := x1; cx < x2; cx++ {
			crop.Set(cx-x1, cy-y1, img.At(cx, cy))
		}
	}
	return crop
}

// encodeJPEG encodes an image as JPEG for cover storage.
func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: coverJPEGQuality})
	return buf.Bytes()
}
