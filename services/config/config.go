package config

import (
	"context"
	"encoding/json"
	"errors"

	"camlib-go/bus"
	"camlib-go/types"

	"github.com/andreyvit/tinyjson"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	halKey       = "hal"
)

type ctxKey string

// CtxDeviceKey is the context key holding the device ID.
const CtxDeviceKey ctxKey = "device"

var (
	ErrNoDevice  = errors.New("config: missing device ID in context")
	ErrNoConfig  = errors.New("config: no embedded config for device")
	ErrNotObject = errors.New("config: embedded config is not a JSON object")
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// HAL section decoding
// -----------------------------------------------------------------------------

// Device params are typed structs on the bus, so each HAL device type names
// the struct its JSON params decode into.
var paramDecoders = map[string]func(json.RawMessage) (any, error){
	"ov7670": func(raw json.RawMessage) (any, error) {
		var p types.CameraParams
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
		}
		return p, nil
	},
}

type rawDevice struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

type rawHAL struct {
	Devices []rawDevice      `json:"devices"`
	Pollers []types.PollSpec `json:"pollers"`
}

// DecodeHAL turns the "hal" section into a HALConfig with typed params.
func DecodeHAL(raw []byte) (types.HALConfig, error) {
	var r rawHAL
	if err := json.Unmarshal(raw, &r); err != nil {
		return types.HALConfig{}, err
	}
	cfg := types.HALConfig{Pollers: r.Pollers}
	for _, d := range r.Devices {
		dec, ok := paramDecoders[d.Type]
		if !ok {
			return types.HALConfig{}, errors.New("config: unknown device type: " + d.Type)
		}
		p, err := dec(d.Params)
		if err != nil {
			return types.HALConfig{}, err
		}
		cfg.Devices = append(cfg.Devices, types.HALDevice{ID: d.ID, Type: d.Type, Params: p})
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig reads the device config from embedded data and publishes
// each top-level key as a retained config/<key> message. The hal section is
// published as a types.HALConfig; other sections as generic JSON values.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return ErrNoDevice
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return ErrNoConfig
	}

	sections, err := parseObject(raw)
	if err != nil {
		return err
	}

	for k, v := range sections {
		payload := v
		if k == halKey {
			cfg, err := decodeHALSection(raw)
			if err != nil {
				return err
			}
			payload = cfg
		}
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), payload, true))
	}
	return nil
}

// parseObject reads the whole document into generic values. tinyjson panics
// on malformed input.
func parseObject(raw []byte) (m map[string]any, err error) {
	defer func() {
		if recover() != nil {
			m, err = nil, ErrNotObject
		}
	}()
	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// decodeHALSection decodes only the hal key, straight into typed params.
func decodeHALSection(raw []byte) (types.HALConfig, error) {
	var doc struct {
		HAL json.RawMessage `json:"hal"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return types.HALConfig{}, err
	}
	return DecodeHAL(doc.HAL)
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config]", err.Error())
		}
	}()
}
