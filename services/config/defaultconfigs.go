package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// The board setup already declares cam0; this adds the schedule and the
// heartbeat that reports capture stats.
const cfgPicoCam = `{
  "hal": {
    "devices": [],
    "pollers": [
      {"domain": "vision", "kind": "camera", "name": "cam0", "verb": "capture", "interval_ms": 1000}
    ]
  },
  "heartbeat": {
    "interval": 5,
    "cameras": ["cam0"]
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico_cam": []byte(cfgPicoCam),
}
