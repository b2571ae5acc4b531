//go:build rp2040 && pico_cam

// pico-cam streams every captured frame over UART1 as
//
//	"OVF1" | seq u32le | len u32le | RGB565 bytes
//
// while the board setup polls the sensor once a second.
package main

import (
	"context"
	"encoding/binary"
	"machine"
	"time"

	"camlib-go/bus"
	"camlib-go/services/hal"
	"camlib-go/types"
	"camlib-go/x/conv"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

const (
	uartTX   = machine.GPIO8
	uartRX   = machine.GPIO9
	uartBaud = 921_600
)

var magic = [4]byte{'O', 'V', 'F', '1'}

func main() {
	time.Sleep(1500 * time.Millisecond)
	println("[cam] boot …")

	u := uartx.UART1
	if err := u.Configure(uartx.UARTConfig{BaudRate: uartBaud, TX: uartTX, RX: uartRX}); err != nil {
		println("[cam] uart configure failed:", err.Error())
		return
	}

	ctx := context.Background()
	b := bus.NewBus(2)
	halConn := b.NewConnection("hal")
	ui := b.NewConnection("ui")

	frames := ui.Subscribe(bus.T("hal", "cap", types.DomainVision, string(types.KindCamera), "cam0", "value"))
	status := ui.Subscribe(bus.T("hal", "cap", types.DomainVision, string(types.KindCamera), "cam0", "status"))
	go hal.Run(ctx, halConn)

	var hdr [12]byte
	copy(hdr[:4], magic[:])
	var hex [8]byte
	for {
		select {
		case m := <-status.Channel():
			if st, ok := m.Payload.(types.CapabilityStatus); ok && st.Error != "" {
				println("[cam] status", string(st.Link), st.Error)
			}
		case m := <-frames.Channel():
			f, ok := m.Payload.(types.CameraFrame)
			if !ok {
				continue
			}
			binary.LittleEndian.PutUint32(hdr[4:8], f.Seq)
			binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(f.Data)))
			if _, err := u.Write(hdr[:]); err != nil {
				println("[cam] uart write failed:", err.Error())
				continue
			}
			if _, err := u.Write(f.Data); err != nil {
				println("[cam] uart write failed:", err.Error())
				continue
			}
			println("[cam] frame", f.Seq, "sum", string(conv.U32Hex(hex[:], checksum(f.Data))))
		}
	}
}

// checksum is a byte sum, enough to spot a torn frame on the host side.
func checksum(b []byte) uint32 {
	var s uint32
	for _, v := range b {
		s += uint32(v)
	}
	return s
}
