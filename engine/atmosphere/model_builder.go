package atmosphere

import "runtime"

type ModelBuilderOption func(*modelImpl)

// NewModel creates a new atmosphere model for the given options. The model
// defaults to the Earth profile, four scattering orders, and one bake worker
// per CPU. Tables are nil until Bake is called.
//
// Parameters:
//   - opts: functional options to configure the model
//
// Returns:
//   - Model: the configured model
func NewModel(opts ...ModelBuilderOption) Model {
	m := &modelImpl{
		params:            EarthParameters(),
		scatteringOrders:  4,
		bakeWorkers:       runtime.NumCPU(),
		maxRayleighShadow: 200000.0,
		horizonNudge:      0.004,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.params.validate()
	if m.scatteringOrders < 1 {
		panic("atmosphere: scattering orders must be at least 1")
	}
	if m.bakeWorkers < 1 {
		m.bakeWorkers = 1
	}
	return m
}

// WithParameters sets the atmosphere profile.
//
// Parameters:
//   - params: the atmosphere description to bake and evaluate
//
// Returns:
//   - ModelBuilderOption: a function that sets the profile
func WithParameters(params Parameters) ModelBuilderOption {
	return func(m *modelImpl) {
		m.params = params
	}
}

// WithScatteringOrders sets the number of scattering orders to bake. Order 1
// is single scattering only; each further order adds one bounce of multiple
// scattering. Four orders are visually converged for Earth.
//
// Parameters:
//   - orders: number of scattering orders, at least 1
//
// Returns:
//   - ModelBuilderOption: a function that sets the order count
func WithScatteringOrders(orders int) ModelBuilderOption {
	return func(m *modelImpl) {
		m.scatteringOrders = orders
	}
}

// WithWorkers sets the number of parallel workers used during Bake.
//
// Parameters:
//   - workers: worker count, at least 1
//
// Returns:
//   - ModelBuilderOption: a function that sets the bake worker count
func WithWorkers(workers int) ModelBuilderOption {
	return func(m *modelImpl) {
		m.bakeWorkers = workers
	}
}

// WithMaxRayleighShadowLength caps the shadowed ray suffix applied to the
// Rayleigh component in SkyRadiance. Mie uses the full shadow length.
//
// Parameters:
//   - meters: maximum Rayleigh shadow length in meters
//
// Returns:
//   - ModelBuilderOption: a function that sets the Rayleigh shadow cap
func WithMaxRayleighShadowLength(meters float64) ModelBuilderOption {
	return func(m *modelImpl) {
		m.maxRayleighShadow = meters
	}
}

// WithHorizonNudge sets the offset added to the horizon view-zenith cosine in
// SkyRadianceToPoint to step over the mu discontinuity at the horizon.
//
// Parameters:
//   - nudge: mu offset above the horizon cosine
//
// Returns:
//   - ModelBuilderOption: a function that sets the horizon offset
func WithHorizonNudge(nudge float64) ModelBuilderOption {
	return func(m *modelImpl) {
		m.horizonNudge = nudge
	}
}
