package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/strato-gfx/strato-go/common"
	"github.com/strato-gfx/strato-go/engine/renderer/bind_group_provider"
)

func (b *wgpuBackend) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Vertex Buffer",
			Size:  uint64(len(vertexData)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, vertexData)
		provider.SetVertexBuffer(buf)
	}

	if len(indexData) > 0 {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Index Buffer",
			Size:  uint64(len(indexData)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return err
		}
		b.queue.WriteBuffer(buf, 0, indexData)
		provider.SetIndexBuffer(buf)
	}

	provider.SetIndexCount(indexCount)
	return nil
}

func (b *wgpuBackend) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	layout := provider.BindGroupLayout()
	if layout == nil {
		var err error
		layout, err = b.device.CreateBindGroupLayout(&descriptor)
		if err != nil {
			return err
		}
		provider.SetBindGroupLayout(layout)
	}

	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		built, err := b.buildBindGroupEntry(provider, entry, bufferUsageOverrides, bufferSizeOverrides)
		if err != nil {
			return err
		}
		entries[i] = built
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

// buildBindGroupEntry resolves one layout entry against the provider's
// resources. Textures and samplers must already be initialized; uniform and
// storage buffers are created on first use at the layout's MinBindingSize
// unless overridden.
func (b *wgpuBackend) buildBindGroupEntry(provider bind_group_provider.BindGroupProvider, entry wgpu.BindGroupLayoutEntry, usageOverrides map[int]wgpu.BufferUsage, sizeOverrides map[int]uint64) (wgpu.BindGroupEntry, error) {
	binding := int(entry.Binding)

	isTexture := entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined ||
		entry.StorageTexture.Format != wgpu.TextureFormatUndefined
	if isTexture {
		view := provider.TextureView(binding)
		if view == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("texture binding %d has no texture view; call InitTextureView first", binding)
		}
		return wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: view}, nil
	}

	if entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined {
		samp := provider.Sampler(binding)
		if samp == nil {
			return wgpu.BindGroupEntry{}, fmt.Errorf("sampler binding %d has no sampler; call InitSampler first", binding)
		}
		return wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: samp}, nil
	}

	usage := wgpu.BufferUsageCopyDst
	if entry.Buffer.Type == wgpu.BufferBindingTypeUniform {
		usage |= wgpu.BufferUsageUniform
	} else {
		usage |= wgpu.BufferUsageStorage
	}
	if override, ok := usageOverrides[binding]; ok {
		usage |= override
	}

	buf := provider.Buffer(binding)
	if buf == nil {
		size := entry.Buffer.MinBindingSize
		if override, ok := sizeOverrides[binding]; ok {
			size = override
		}
		created, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: provider.Label() + " Buffer",
			Size:  size,
			Usage: usage,
		})
		if err != nil {
			return wgpu.BindGroupEntry{}, err
		}
		provider.SetBuffer(binding, created)
		buf = created
	}
	return wgpu.BindGroupEntry{
		Binding: entry.Binding,
		Buffer:  buf,
		Offset:  0,
		Size:    wgpu.WholeSize,
	}, nil
}

func (b *wgpuBackend) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	format := stagingData.Format
	if format == wgpu.TextureFormatUndefined {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}
	bytesPerTexel := stagingData.BytesPerTexel
	if bytesPerTexel == 0 {
		bytesPerTexel = 4
	}
	depth := stagingData.DepthOrLayers
	if depth == 0 {
		depth = 1
	}
	dimension := stagingData.Dimension
	if dimension == wgpu.TextureDimension(0) {
		dimension = wgpu.TextureDimension2D
	}
	extent := wgpu.Extent3D{
		Width:              stagingData.Width,
		Height:             stagingData.Height,
		DepthOrArrayLayers: depth,
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         provider.Label() + " Texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     dimension,
		Size:          extent,
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: tex,
			Origin:  wgpu.Origin3D{},
			Aspect:  wgpu.TextureAspectAll,
		},
		stagingData.Texels,
		&wgpu.TextureDataLayout{
			BytesPerRow:  stagingData.Width * bytesPerTexel,
			RowsPerImage: stagingData.Height,
		},
		&extent,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		return err
	}
	provider.SetTextureView(bindingKey, view)
	return nil
}

func (b *wgpuBackend) InitStorageTexture(provider bind_group_provider.BindGroupProvider, bindingKey int, width, height, layers uint32, format wgpu.TextureFormat) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if layers == 0 {
		layers = 1
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     provider.Label() + " Storage Texture",
		Usage:     wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: layers,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	provider.SetTextureView(bindingKey, view)
	return nil
}

func (b *wgpuBackend) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label() + " Sampler",
		AddressModeU:  common.Coalesce(samplerStagingData.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(samplerStagingData.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(samplerStagingData.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(samplerStagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(samplerStagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(samplerStagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(samplerStagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(samplerStagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(samplerStagingData.MaxAnisotropy, 1),
		Compare:       samplerStagingData.Compare,
	})
	if err != nil {
		return err
	}
	provider.SetSampler(bindingKey, samp)
	return nil
}

func (b *wgpuBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

func (b *wgpuBackend) CreateCascadeDepthArray(size, cascades int) ([]*wgpu.TextureView, *wgpu.TextureView, *wgpu.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Cascade Depth Array",
		Size: wgpu.Extent3D{
			Width:              uint32(size),
			Height:             uint32(size),
			DepthOrArrayLayers: uint32(cascades),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cascade depth array: %w", err)
	}

	// One render-target view per layer, plus a 2D-array view the lit
	// shaders sample through the comparison sampler.
	layerViews := make([]*wgpu.TextureView, cascades)
	for i := range layerViews {
		layerViews[i], err = tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("Cascade %d Depth View", i),
			Format:          wgpu.TextureFormatDepth32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseArrayLayer:  uint32(i),
			ArrayLayerCount: 1,
			MipLevelCount:   1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			tex.Release()
			return nil, nil, nil, fmt.Errorf("cascade %d depth view: %w", i, err)
		}
	}

	arrayView, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Cascade Depth Sampling View",
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       wgpu.TextureViewDimension2DArray,
		ArrayLayerCount: uint32(cascades),
		MipLevelCount:   1,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, nil, nil, fmt.Errorf("cascade sampling view: %w", err)
	}

	return layerViews, arrayView, tex, nil
}

func (b *wgpuBackend) CreateComparisonSampler() (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("comparison sampler: %w", err)
	}
	return samp, nil
}
