//go:build !rp2040

package provider

import (
	"sync"

	"camlib-go/drivers/ov7670"
	"camlib-go/drivers/ov7670/ovsim"
	"camlib-go/errcode"
	"camlib-go/services/hal/internal/core"
	"camlib-go/services/hal/internal/provider/boards"
	"camlib-go/services/hal/internal/provider/setups"

	"tinygo.org/x/drivers"
)

// Ensure the provider satisfies the contracts at compile time.
var _ core.ResourceRegistry = (*HostRegistry)(nil)

// -----------------------------------------------------------------------------
// GPIO handle
// -----------------------------------------------------------------------------

// FakePin is a host GPIO. An input with a pull-up reads high, which makes an
// unpopulated open-drain bus look idle.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
}

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) ConfigureInput(pull core.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	switch pull {
	case core.PullUp:
		p.level = true
	case core.PullDown:
		p.level = false
	}
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

// Output reports whether the pin is currently driven.
func (p *FakePin) Output() bool {
	p.mu.RLock()
	v := p.modeOut
	p.mu.RUnlock()
	return v
}

// -----------------------------------------------------------------------------
// I²C (host)
// -----------------------------------------------------------------------------

// hostI2C serialises access to one simulated bus, the way the rp2 per-bus
// owner does.
type hostI2C struct {
	mu  sync.Mutex
	dev drivers.I2C
}

func (h *hostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev.Tx(addr, w, r)
}

// -----------------------------------------------------------------------------
// Camera port (host)
// -----------------------------------------------------------------------------

// HostCamera backs a camera port with a simulated sensor.
type HostCamera struct {
	Sensor *ovsim.Sensor

	mu       sync.Mutex
	clockHz  uint32
	masked   int
	restored uintptr
}

func (c *HostCamera) ReadPin(line uint8) bool { return c.Sensor.ReadPin(ov7670.Pin(line)) }
func (c *HostCamera) ReadBus() byte           { return c.Sensor.ReadBus() }

func (c *HostCamera) Disable() uintptr {
	c.mu.Lock()
	c.masked++
	c.mu.Unlock()
	return 1
}

func (c *HostCamera) Restore(state uintptr) {
	c.mu.Lock()
	c.masked--
	c.restored = state
	c.mu.Unlock()
}

func (c *HostCamera) StartClock(hz uint32) error {
	if hz == 0 {
		return errcode.InvalidParams
	}
	c.mu.Lock()
	c.clockHz = hz
	c.mu.Unlock()
	return nil
}

func (c *HostCamera) StopClock() {
	c.mu.Lock()
	c.clockHz = 0
	c.mu.Unlock()
}

// ClockHz is the running master clock, 0 when stopped.
func (c *HostCamera) ClockHz() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clockHz
}

// Masked reports whether interrupts are currently held off.
func (c *HostCamera) Masked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masked != 0
}

// -----------------------------------------------------------------------------
// Resource registry (host)
// -----------------------------------------------------------------------------

// HostRegistry is the registry used off-target. Each planned I2C bus carries
// one simulated sensor register file at the OV7670 address and each planned
// camera port carries a simulated sensor. Fields are exported for tests.
type HostRegistry struct {
	mu sync.Mutex

	Chips   map[core.ResourceID]*ovsim.RegisterFile
	Cameras map[core.ResourceID]*HostCamera
	Pins    map[int]*FakePin

	buses      map[core.ResourceID]*hostI2C
	pinOwners  map[int]string
	camOwners  map[core.ResourceID]string
	busClaims  map[core.ResourceID]map[string]bool
	cameraPins map[core.ResourceID][]int
}

// NewHostRegistry builds the host registry directly; tests use it to reach
// the simulators.
func NewHostRegistry(plan setups.ResourcePlan) *HostRegistry {
	r := &HostRegistry{
		Chips:      make(map[core.ResourceID]*ovsim.RegisterFile),
		Cameras:    make(map[core.ResourceID]*HostCamera),
		Pins:       make(map[int]*FakePin),
		buses:      make(map[core.ResourceID]*hostI2C),
		pinOwners:  make(map[int]string),
		camOwners:  make(map[core.ResourceID]string),
		busClaims:  make(map[core.ResourceID]map[string]bool),
		cameraPins: make(map[core.ResourceID][]int),
	}
	for _, p := range plan.I2C {
		if !boards.SelectedBoard.Has(p.ID) {
			continue
		}
		id := core.ResourceID(p.ID)
		rf := ovsim.NewRegisterFile()
		r.Chips[id] = rf
		r.buses[id] = &hostI2C{dev: rf}
	}
	for _, c := range plan.Camera {
		id := core.ResourceID(c.ID)
		r.Cameras[id] = &HostCamera{Sensor: ovsim.NewSensor(ovsim.Config{})}
		r.cameraPins[id] = c.Pins()
	}
	return r
}

func NewResourceRegistry(plan setups.ResourcePlan) core.ResourceRegistry {
	return NewHostRegistry(plan)
}

func (r *HostRegistry) ClaimI2C(devID string, id core.ResourceID) (drivers.I2C, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.buses[id]
	if b == nil {
		return nil, errcode.UnknownBus
	}
	if r.busClaims[id] == nil {
		r.busClaims[id] = map[string]bool{}
	}
	r.busClaims[id][devID] = true
	return b, nil
}

func (r *HostRegistry) ReleaseI2C(devID string, id core.ResourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.busClaims[id], devID)
}

// I2CUsers is the number of devices holding the bus.
func (r *HostRegistry) I2CUsers(id core.ResourceID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.busClaims[id])
}

func (r *HostRegistry) ClaimGPIO(devID string, n int) (core.GPIOHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := boards.SelectedBoard
	if n < b.GPIOMin || n > b.GPIOMax {
		return nil, errcode.UnknownPin
	}
	if owner, inUse := r.pinOwners[n]; inUse && owner != "" {
		return nil, errcode.PinInUse
	}
	p := r.Pins[n]
	if p == nil {
		p = &FakePin{number: n}
		r.Pins[n] = p
	}
	r.pinOwners[n] = devID
	return p, nil
}

func (r *HostRegistry) ReleaseGPIO(devID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pinOwners[n] == devID {
		delete(r.pinOwners, n)
	}
}

// PinOwner returns the device holding GPIO n, or "".
func (r *HostRegistry) PinOwner(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pinOwners[n]
}

func (r *HostRegistry) ClaimCamera(devID string, id core.ResourceID) (core.CameraPort, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.Cameras[id]
	if c == nil {
		return nil, errcode.UnknownBus
	}
	if owner := r.camOwners[id]; owner != "" {
		return nil, errcode.BusInUse
	}
	pins := r.cameraPins[id]
	for _, n := range pins {
		if owner := r.pinOwners[n]; owner != "" {
			return nil, errcode.PinInUse
		}
	}
	for _, n := range pins {
		r.pinOwners[n] = devID
	}
	r.camOwners[id] = devID
	return c, nil
}

func (r *HostRegistry) ReleaseCamera(devID string, id core.ResourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.camOwners[id] != devID {
		return
	}
	delete(r.camOwners, id)
	for _, n := range r.cameraPins[id] {
		if r.pinOwners[n] == devID {
			delete(r.pinOwners, n)
		}
	}
}
