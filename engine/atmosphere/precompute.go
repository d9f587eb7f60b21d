package atmosphere

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl64"
)

// Bake runs the full table precomputation. The heavy inner loops are split
// into per-row (2D) and per-slice (3D) tasks on a bounded worker pool; the
// context is checked between task batches, so cancellation aborts at stage
// granularity with partially written scratch tables discarded.
func (m *modelImpl) Bake(ctx context.Context) error {
	p := &m.params
	start := time.Now()
	log.Printf("[Atmosphere] baking tables: %d scattering orders, %d workers", m.scatteringOrders, m.bakeWorkers)

	pool := worker.NewDynamicWorkerPool(m.bakeWorkers, 256, 1*time.Second)

	transmittance := NewTexture2D(TransmittanceTextureWidth, TransmittanceTextureHeight)
	irradiance := NewTexture2D(IrradianceTextureWidth, IrradianceTextureHeight)
	scattering := NewTexture3D(ScatteringTextureWidth, ScatteringTextureHeight, ScatteringTextureDepth)

	// Per-order scratch tables. The single-scattering deltas survive the whole
	// bake: every later order reads them through getScattering.
	deltaIrradiance := NewTexture2D(IrradianceTextureWidth, IrradianceTextureHeight)
	deltaRayleigh := NewTexture3D(ScatteringTextureWidth, ScatteringTextureHeight, ScatteringTextureDepth)
	deltaMie := NewTexture3D(ScatteringTextureWidth, ScatteringTextureHeight, ScatteringTextureDepth)
	deltaMultiple := NewTexture3D(ScatteringTextureWidth, ScatteringTextureHeight, ScatteringTextureDepth)
	deltaDensity := NewTexture3D(ScatteringTextureWidth, ScatteringTextureHeight, ScatteringTextureDepth)

	// Stage 1: transmittance to the top boundary, one task per texel row.
	err := m.parallel(ctx, pool, TransmittanceTextureHeight, func(y int) {
		v := (float64(y) + 0.5) / TransmittanceTextureHeight
		for x := 0; x < TransmittanceTextureWidth; x++ {
			u := (float64(x) + 0.5) / TransmittanceTextureWidth
			r, mu := p.RMuFromTransmittanceTextureUV(u, v)
			t := p.computeTransmittanceToTopAtmosphereBoundary(r, mu)
			transmittance.Set(x, y, mgl64.Vec4{t[0], t[1], t[2], 1})
		}
	})
	if err != nil {
		return err
	}

	// Stage 2: direct irradiance into the delta table. The accumulated
	// irradiance table starts at zero: direct sun light is applied at shading
	// time, not read back from the table.
	err = m.parallel(ctx, pool, IrradianceTextureHeight, func(y int) {
		v := (float64(y) + 0.5) / IrradianceTextureHeight
		for x := 0; x < IrradianceTextureWidth; x++ {
			u := (float64(x) + 0.5) / IrradianceTextureWidth
			r, muS := p.RMuSFromIrradianceTextureUV(u, v)
			e := p.computeDirectIrradiance(transmittance, r, muS)
			deltaIrradiance.Set(x, y, mgl64.Vec4{e[0], e[1], e[2], 1})
		}
	})
	if err != nil {
		return err
	}

	// Stage 3: single scattering, one task per depth slice. The combined
	// table packs Rayleigh in rgb and the red Mie channel in alpha; the full
	// Mie spectrum is extrapolated from alpha at lookup time.
	err = m.parallel(ctx, pool, ScatteringTextureDepth, func(z int) {
		for y := 0; y < ScatteringTextureHeight; y++ {
			for x := 0; x < ScatteringTextureWidth; x++ {
				r, mu, muS, nu, intersectsGround := p.rMuMuSNuFromScatteringTexel(x, y, z)
				rayleigh, mie := p.computeSingleScattering(transmittance, r, mu, muS, nu, intersectsGround)
				deltaRayleigh.Set(x, y, z, mgl64.Vec4{rayleigh[0], rayleigh[1], rayleigh[2], 1})
				deltaMie.Set(x, y, z, mgl64.Vec4{mie[0], mie[1], mie[2], 1})
				scattering.Set(x, y, z, mgl64.Vec4{rayleigh[0], rayleigh[1], rayleigh[2], mie[0]})
			}
		}
	})
	if err != nil {
		return err
	}

	// Stage 4: multiple scattering, order by order. Each iteration reads the
	// previous order's deltas, so the three sub-stages are strict barriers.
	for order := 2; order <= m.scatteringOrders; order++ {
		orderStart := time.Now()

		// 4a: scattering density of this order from the previous order's
		// radiance and irradiance.
		err = m.parallel(ctx, pool, ScatteringTextureDepth, func(z int) {
			for y := 0; y < ScatteringTextureHeight; y++ {
				for x := 0; x < ScatteringTextureWidth; x++ {
					r, mu, muS, nu, _ := p.rMuMuSNuFromScatteringTexel(x, y, z)
					d := p.computeScatteringDensity(transmittance, deltaRayleigh, deltaMie, deltaMultiple, deltaIrradiance, r, mu, muS, nu, order)
					deltaDensity.Set(x, y, z, mgl64.Vec4{d[0], d[1], d[2], 1})
				}
			}
		})
		if err != nil {
			return err
		}

		// 4b: indirect irradiance of the previous order, accumulated into the
		// irradiance table and replacing the delta for the next iteration.
		err = m.parallel(ctx, pool, IrradianceTextureHeight, func(y int) {
			v := (float64(y) + 0.5) / IrradianceTextureHeight
			for x := 0; x < IrradianceTextureWidth; x++ {
				u := (float64(x) + 0.5) / IrradianceTextureWidth
				r, muS := p.RMuSFromIrradianceTextureUV(u, v)
				e := p.computeIndirectIrradiance(deltaRayleigh, deltaMie, deltaMultiple, r, muS, order-1)
				deltaIrradiance.Set(x, y, mgl64.Vec4{e[0], e[1], e[2], 1})
				acc := irradiance.Get(x, y)
				irradiance.Set(x, y, mgl64.Vec4{acc[0] + e[0], acc[1] + e[1], acc[2] + e[2], 1})
			}
		})
		if err != nil {
			return err
		}

		// 4c: integrate the density into this order's radiance and accumulate
		// into the combined table. The accumulated rgb stores radiance divided
		// by the Rayleigh phase function, which the lookup multiplies back.
		err = m.parallel(ctx, pool, ScatteringTextureDepth, func(z int) {
			for y := 0; y < ScatteringTextureHeight; y++ {
				for x := 0; x < ScatteringTextureWidth; x++ {
					r, mu, muS, nu, intersectsGround := p.rMuMuSNuFromScatteringTexel(x, y, z)
					s := p.computeMultipleScattering(transmittance, deltaDensity, r, mu, muS, nu, intersectsGround)
					deltaMultiple.Set(x, y, z, mgl64.Vec4{s[0], s[1], s[2], 1})
					phase := RayleighPhaseFunction(nu)
					acc := scattering.Get(x, y, z)
					scattering.Set(x, y, z, mgl64.Vec4{
						acc[0] + s[0]/phase,
						acc[1] + s[1]/phase,
						acc[2] + s[2]/phase,
						acc[3],
					})
				}
			}
		})
		if err != nil {
			return err
		}

		log.Printf("[Atmosphere] order %d baked in %s", order, time.Since(orderStart))
	}

	m.tables = &Tables{
		Transmittance: transmittance,
		Scattering:    scattering,
		Irradiance:    irradiance,
	}
	log.Printf("[Atmosphere] bake complete in %s", time.Since(start))
	return nil
}

// parallel fans n index tasks out to the pool and waits for all of them.
// Returns early with ctx.Err() if the context is done before all tasks are
// submitted; already submitted tasks are still drained through the WaitGroup
// so no worker touches a table after parallel returns.
func (m *modelImpl) parallel(ctx context.Context, pool worker.DynamicWorkerPool, n int, do func(i int)) error {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		idx := i
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				do(idx)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return ctx.Err()
}
