//go:build rp2040

// Command pico-motor is the rp2040 firmware: the HAL drives the configured
// H-bridges and the console listens on the USB serial port.
package main

import (
	"context"
	"io"
	"machine"
	"time"

	"hbridge-go/bus"
	"hbridge-go/services/config"
	"hbridge-go/services/console"
	"hbridge-go/services/hal"
	"hbridge-go/services/heartbeat"
	"hbridge-go/x/shmring"
)

// Board wiring; the motors come from the "pico" profile.
var plan = hal.RP2Plan{
	GPIOMin: 0,
	GPIOMax: 28,
	I2C:     []hal.I2CPlan{{ID: "i2c0", SDA: 4, SCL: 5, Hz: 400_000}},
}

// usbPort reads from a ring filled by pump and writes straight to USB.
type usbPort struct {
	rx *shmring.Ring
}

func (p usbPort) Read(b []byte) (int, error)  { return p.rx.Read(b) }
func (p usbPort) Write(b []byte) (int, error) { return machine.Serial.Write(b) }

// pump moves USB bytes into the ring; machine.Serial.Read never blocks.
func pump(rx *shmring.Ring) {
	var buf [64]byte
	for {
		n := 0
		for n < len(buf) && machine.Serial.Buffered() > 0 {
			c, err := machine.Serial.ReadByte()
			if err != nil {
				break
			}
			buf[n] = c
			n++
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		for off := 0; off < n; {
			w, err := rx.Write(buf[off:n])
			if err != nil {
				return
			}
			off += w
		}
	}
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] pico-motor booting")
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")

	b := bus.NewBus(8)
	reg := hal.NewRP2Registry(plan)
	go hal.Run(ctx, b.NewConnection("hal"), reg)

	config.NewConfigService().Start(ctx, b.NewConnection("config"))
	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	rx := shmring.New(256)
	go pump(rx)

	var port io.ReadWriter = usbPort{rx: rx}
	console.New(b.NewConnection("console"), console.Options{}).Run(ctx, console.Stream("usb", port))
}
