package matting

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-icongen/images"
	"github.com/pkg/errors"
)

var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// FillTensor resizes img to size x size and writes it into dst as a
// normalised CHW float tensor.
//
// Pixel values are divided by the image's largest channel value and then
// normalised with the ImageNet mean and standard deviation, which is the
// input convention of U^2-Net style models.
//
// Arguments:
//   - img: The image to prepare.
//   - size: The model's square input size.
//   - dst: The destination tensor data, at least 3*size*size floats.
//
// Returns:
//   - error: An error if dst is too small.
func FillTensor(img image.Image, size int, dst []float32) error {
	channelSize := size * size
	if size <= 0 || len(dst) < channelSize*3 {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	b := resized.Bounds()

	pix := make([]float32, channelSize*3)
	var peak float32
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := resized.At(x, y).RGBA()
			pix[i] = float32(r >> 8)
			pix[i+channelSize] = float32(g >> 8)
			pix[i+channelSize*2] = float32(bl >> 8)
			peak = math32.Max(peak, math32.Max(pix[i], math32.Max(pix[i+channelSize], pix[i+channelSize*2])))
			i++
		}
	}
	if peak == 0 {
		peak = 1
	}

	for c := 0; c < 3; c++ {
		plane := pix[c*channelSize : (c+1)*channelSize]
		out := dst[c*channelSize : (c+1)*channelSize]
		for j, v := range plane {
			out[j] = (v/peak - imagenetMean[c]) / imagenetStd[c]
		}
	}
	return nil
}

// NormalizePrediction min-max normalises a saliency map into [0, 1] in place.
// A constant map is clamped to [0, 1] instead.
func NormalizePrediction(pred []float32) {
	if len(pred) == 0 {
		return
	}

	lo, hi := math32.Inf(1), math32.Inf(-1)
	for _, v := range pred {
		if math32.IsNaN(v) {
			continue
		}
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
	}

	span := hi - lo
	for i, v := range pred {
		switch {
		case math32.IsNaN(v):
			pred[i] = 0
		case span > 0:
			pred[i] = (v - lo) / span
		default:
			pred[i] = math32.Min(1, math32.Max(0, v))
		}
	}
}

// MatteFromPrediction turns the model's first output plane into a matte of
// width x height pixels.
//
// Arguments:
//   - pred: size*size raw predictions; normalised in place.
//   - size: The model's square output size.
//   - width: The width of the source image.
//   - height: The height of the source image.
//
// Returns:
//   - *image.Gray: The matte at the source resolution.
//   - error: An error if the prediction has the wrong length.
func MatteFromPrediction(pred []float32, size, width, height int) (*image.Gray, error) {
	if size <= 0 || len(pred) < size*size {
		return nil, errors.Errorf("prediction holds %d values, needs %d", len(pred), size*size)
	}
	plane := pred[:size*size]
	NormalizePrediction(plane)

	matte, err := images.MatteFromFloats(size, size, plane)
	if err != nil {
		return nil, err
	}
	if width == size && height == size {
		return matte, nil
	}

	scaled := resize.Resize(uint(width), uint(height), matte, resize.Lanczos3)
	return images.MatteFromImage(scaled)
}
