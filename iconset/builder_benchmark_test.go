package iconset

import (
	"context"
	"strconv"
	"testing"

	"github.com/nvr-ai/go-icongen/images"
	"github.com/nvr-ai/go-icongen/profiler"
)

func benchmarkBase(b *testing.B, size int) *images.Image {
	b.Helper()

	img, err := images.New(size, size, images.PixelFormatRGB)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < len(img.Pix); i += 3 {
		img.Pix[i] = uint8(i / 3 % size)
		img.Pix[i+1] = uint8(i / 3 / size)
		img.Pix[i+2] = 128
	}
	return img
}

// BenchmarkBuilderRunIOS measures a full iOS set with corner mask and container.
func BenchmarkBuilderRunIOS(b *testing.B) {
	base := benchmarkBase(b, 1024)
	cfg := Config{
		CornerMask:           true,
		CornerRadiusFraction: DefaultCornerRadiusFraction,
		PackContainer:        true,
		TargetSizes:          IOSSizes(),
	}
	builder := NewBuilder()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := builder.Run(context.Background(), base, nil, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBuilderConcurrency compares sequential and parallel size fan-out.
func BenchmarkBuilderConcurrency(b *testing.B) {
	base := benchmarkBase(b, 512)

	for _, c := range []int{1, 2, 4, 0} {
		cfg := Config{
			PackContainer: true,
			TargetSizes:   WindowsSizes(),
			Concurrency:   c,
		}
		name := "gomaxprocs"
		if c > 0 {
			name = "workers-" + strconv.Itoa(c)
		}

		b.Run(name, func(b *testing.B) {
			builder := NewBuilder()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := builder.Run(context.Background(), base, nil, cfg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkProfilerOverhead measures the cost of recording stage timings.
func BenchmarkProfilerOverhead(b *testing.B) {
	base := benchmarkBase(b, 256)
	cfg := Config{TargetSizes: FaviconSizes(), Concurrency: 1}

	b.Run("without timings", func(b *testing.B) {
		builder := NewBuilder()
		for i := 0; i < b.N; i++ {
			_, _ = builder.Run(context.Background(), base, nil, cfg)
		}
	})
	b.Run("with timings", func(b *testing.B) {
		builder := NewBuilder(WithTimings(profiler.NewTimings()))
		for i := 0; i < b.N; i++ {
			_, _ = builder.Run(context.Background(), base, nil, cfg)
		}
	})
}
