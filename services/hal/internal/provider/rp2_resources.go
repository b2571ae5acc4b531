//go:build rp2040

package provider

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"sync"
	"time"

	"camlib-go/errcode"
	"camlib-go/services/hal/internal/core"
	"camlib-go/services/hal/internal/provider/boards"
	"camlib-go/services/hal/internal/provider/setups"
	"camlib-go/x/timex"

	"tinygo.org/x/drivers"
)

// Ensure the provider satisfies the contracts at compile time.
var _ core.ResourceRegistry = (*rp2Registry)(nil)

// -----------------------------------------------------------------------------
// GPIO handle
// -----------------------------------------------------------------------------

type rp2GPIO struct {
	p machine.Pin
	n int
}

func (r *rp2GPIO) Number() int { return r.n }

func (r *rp2GPIO) ConfigureInput(pull core.Pull) error {
	var mode machine.PinMode
	switch pull {
	case core.PullUp:
		mode = machine.PinInputPullup
	case core.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2GPIO) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2GPIO) Set(b bool) { r.p.Set(b) }
func (r *rp2GPIO) Get() bool  { return r.p.Get() }

// -----------------------------------------------------------------------------
// PWM internals (RP2040)
// -----------------------------------------------------------------------------

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// Select controller handle for a given slice number (0..7).
func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// -----------------------------------------------------------------------------
// Camera port (SIO polling + PWM master clock)
// -----------------------------------------------------------------------------

// rp2Camera reads the parallel port straight from SIO. The eight data lines
// must be consecutive GPIOs so a byte is one shift of GPIO_IN.
type rp2Camera struct {
	d0    uint32
	lines [4]uint32 // VSYNC, HSYNC, PCLK, D7 masks
	xclk  machine.Pin

	pwm    pwmCtrl
	ch     uint8
	active bool
}

func newRP2Camera(c setups.CameraPlan) *rp2Camera {
	cam := &rp2Camera{
		d0:   uint32(c.D0),
		xclk: machine.Pin(c.XCLK),
	}
	cam.lines[0] = 1 << uint(c.VSYNC)
	cam.lines[1] = 1 << uint(c.HREF)
	cam.lines[2] = 1 << uint(c.PCLK)
	cam.lines[3] = 1 << uint(c.D0+7)
	for _, n := range c.Pins() {
		if n == c.XCLK {
			continue
		}
		machine.Pin(n).Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	return cam
}

func (c *rp2Camera) ReadPin(line uint8) bool {
	return rp.SIO.GPIO_IN.Get()&c.lines[line&3] != 0
}

func (c *rp2Camera) ReadBus() byte { return byte(rp.SIO.GPIO_IN.Get() >> c.d0) }

func (c *rp2Camera) Disable() uintptr      { return uintptr(interrupt.Disable()) }
func (c *rp2Camera) Restore(state uintptr) { interrupt.Restore(interrupt.State(state)) }

// StartClock drives XCLK at hz with a 50% duty cycle.
func (c *rp2Camera) StartClock(hz uint32) error {
	slice, err := machine.PWMPeripheral(c.xclk)
	if err != nil {
		return errcode.Unsupported
	}
	ctrl := pwmGroupBySlice(slice)
	if err := ctrl.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(hz)}); err != nil {
		return err
	}
	ch, err := ctrl.Channel(c.xclk)
	if err != nil {
		return err
	}
	ctrl.Set(ch, ctrl.Top()/2)
	c.pwm, c.ch, c.active = ctrl, ch, true
	// Let the sensor PLL lock before the first register write.
	time.Sleep(10 * time.Millisecond)
	return nil
}

func (c *rp2Camera) StopClock() {
	if !c.active {
		return
	}
	c.pwm.Set(c.ch, 0)
	c.active = false
}

// -----------------------------------------------------------------------------
// I²C owner (one worker per bus)
// -----------------------------------------------------------------------------

// request posted to the per-bus worker
type i2cReq struct {
	addr uint16
	w, r []byte
	done chan error // buffered(1); worker replies best-effort
}

// per-bus owner that hosts a single worker goroutine
type i2cOwner struct {
	id   core.ResourceID
	hw   *machine.I2C
	reqs chan i2cReq
	quit chan struct{}
}

func newI2COwner(id core.ResourceID, hw *machine.I2C) *i2cOwner {
	o := &i2cOwner{
		id:   id,
		hw:   hw,
		reqs: make(chan i2cReq, 16),
		quit: make(chan struct{}),
	}
	go o.loop()
	return o
}

func (o *i2cOwner) loop() {
	for {
		select {
		case req := <-o.reqs:
			err := o.hw.Tx(req.addr, req.w, req.r)
			// best-effort reply; do not block the worker
			select {
			case req.done <- err:
			default:
			}
		case <-o.quit:
			return
		}
	}
}

func (o *i2cOwner) stop() { close(o.quit) }

// driversI2C adapts the owner to tinygo.org/x/drivers.I2C with a per-call
// deadline.
type driversI2C struct {
	o       *i2cOwner
	timeout time.Duration // 0 => no deadline
}

var _ drivers.I2C = (*driversI2C)(nil)

func (d *driversI2C) Tx(addr uint16, w, r []byte) error {
	req := i2cReq{addr: addr, w: w, r: r, done: make(chan error, 1)}

	if d.timeout <= 0 {
		d.o.reqs <- req
		return <-req.done
	}

	t := time.NewTimer(d.timeout)
	defer t.Stop()
	select {
	case d.o.reqs <- req:
	case <-t.C:
		return errcode.Busy
	}
	select {
	case err := <-req.done:
		return err
	case <-t.C:
		return errcode.Timeout
	}
}

// -----------------------------------------------------------------------------
// Resource registry (GPIO + I2C + camera)
// -----------------------------------------------------------------------------

type rp2Registry struct {
	mu sync.Mutex

	pinOwners map[int]string // pin -> devID
	gpioMap   map[int]*rp2GPIO

	i2cOwners map[core.ResourceID]*i2cOwner

	cameras    map[core.ResourceID]*rp2Camera
	cameraPins map[core.ResourceID][]int
	camOwners  map[core.ResourceID]string
}

func NewResourceRegistry(plan setups.ResourcePlan) core.ResourceRegistry {
	r := &rp2Registry{
		pinOwners:  make(map[int]string),
		gpioMap:    make(map[int]*rp2GPIO),
		i2cOwners:  make(map[core.ResourceID]*i2cOwner),
		cameras:    make(map[core.ResourceID]*rp2Camera),
		cameraPins: make(map[core.ResourceID][]int),
		camOwners:  make(map[core.ResourceID]string),
	}

	// Instantiate I2C owners from the provided plan (pins and frequency).
	for _, p := range plan.I2C {
		var hw *machine.I2C
		switch p.ID {
		case "i2c0":
			hw = machine.I2C0
		case "i2c1":
			hw = machine.I2C1
		default:
			continue
		}
		sda := machine.Pin(p.SDA)
		scl := machine.Pin(p.SCL)
		sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
		scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
		hw.Configure(machine.I2CConfig{
			SCL:       scl,
			SDA:       sda,
			Frequency: p.Hz,
		})
		id := core.ResourceID(p.ID)
		r.i2cOwners[id] = newI2COwner(id, hw)
		r.pinOwners[p.SDA] = "bus:" + p.ID
		r.pinOwners[p.SCL] = "bus:" + p.ID
	}

	for _, c := range plan.Camera {
		id := core.ResourceID(c.ID)
		r.cameras[id] = newRP2Camera(c)
		r.cameraPins[id] = c.Pins()
	}
	return r
}

// Transactional buses (I2C); owners are shared and long-lived.
func (r *rp2Registry) ClaimI2C(devID string, id core.ResourceID) (drivers.I2C, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.i2cOwners[id]
	if o == nil {
		return nil, errcode.UnknownBus
	}
	return &driversI2C{o: o, timeout: 250 * time.Millisecond}, nil
}

func (r *rp2Registry) ReleaseI2C(devID string, id core.ResourceID) {}

func (r *rp2Registry) inBoardRange(n int) bool {
	b := boards.SelectedBoard
	return n >= b.GPIOMin && n <= b.GPIOMax
}

func (r *rp2Registry) ClaimGPIO(devID string, n int) (core.GPIOHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inBoardRange(n) {
		return nil, errcode.UnknownPin
	}
	if owner, inUse := r.pinOwners[n]; inUse && owner != "" {
		return nil, errcode.PinInUse
	}
	g, ok := r.gpioMap[n]
	if !ok {
		g = &rp2GPIO{p: machine.Pin(n), n: n}
		r.gpioMap[n] = g
	}
	r.pinOwners[n] = devID
	return g, nil
}

func (r *rp2Registry) ReleaseGPIO(devID string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pinOwners[n] != devID {
		return
	}
	// Put the pin back to input.
	machine.Pin(n).Configure(machine.PinConfig{Mode: machine.PinInput})
	delete(r.pinOwners, n)
}

func (r *rp2Registry) ClaimCamera(devID string, id core.ResourceID) (core.CameraPort, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.cameras[id]
	if c == nil {
		return nil, errcode.UnknownBus
	}
	if r.camOwners[id] != "" {
		return nil, errcode.BusInUse
	}
	for _, n := range r.cameraPins[id] {
		if r.pinOwners[n] != "" {
			return nil, errcode.PinInUse
		}
	}
	for _, n := range r.cameraPins[id] {
		r.pinOwners[n] = devID
	}
	r.camOwners[id] = devID
	return c, nil
}

func (r *rp2Registry) ReleaseCamera(devID string, id core.ResourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.camOwners[id] != devID {
		return
	}
	r.cameras[id].StopClock()
	delete(r.camOwners, id)
	for _, n := range r.cameraPins[id] {
		if r.pinOwners[n] == devID {
			delete(r.pinOwners, n)
		}
	}
}

// Close stops background workers (e.g. per-bus I2C goroutines).
func (r *rp2Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.i2cOwners {
		if o != nil {
			o.stop()
		}
	}
}
