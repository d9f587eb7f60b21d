package sky

type FrameGraphBuilderOption func(*frameGraphImpl)

// WithCloudResolution sets the cloud march output resolution. The compose
// pass upsamples from it, so a half or quarter of the surface size is usual.
//
// Parameters:
//   - width: output width in texels, must be positive
//   - height: output height in texels, must be positive
func WithCloudResolution(width, height int) FrameGraphBuilderOption {
	return func(f *frameGraphImpl) {
		if width <= 0 || height <= 0 {
			panic("sky: cloud resolution must be positive")
		}
		f.cloudWidth = width
		f.cloudHeight = height
	}
}

// WithWeatherMapSize sets the square resolution of the generated weather map.
//
// Parameters:
//   - size: edge length in texels, must be positive
func WithWeatherMapSize(size int) FrameGraphBuilderOption {
	return func(f *frameGraphImpl) {
		if size <= 0 {
			panic("sky: weather map size must be positive")
		}
		f.weatherSize = size
	}
}

// WithShapeVolumeSize sets the cubic resolution of the generated shape volume.
//
// Parameters:
//   - size: edge length in texels, must be positive
func WithShapeVolumeSize(size int) FrameGraphBuilderOption {
	return func(f *frameGraphImpl) {
		if size <= 0 {
			panic("sky: shape volume size must be positive")
		}
		f.shapeSize = size
	}
}

// WithNoiseSeed sets the seed for the generated weather and shape volumes.
//
// Parameters:
//   - seed: the noise seed
func WithNoiseSeed(seed int64) FrameGraphBuilderOption {
	return func(f *frameGraphImpl) {
		f.seed = seed
	}
}

// WithGenerationWorkers sets the worker count for volume generation in Init.
//
// Parameters:
//   - workers: the worker count, minimum 1
func WithGenerationWorkers(workers int) FrameGraphBuilderOption {
	return func(f *frameGraphImpl) {
		if workers < 1 {
			panic("sky: generation worker count must be at least 1")
		}
		f.workers = workers
	}
}
