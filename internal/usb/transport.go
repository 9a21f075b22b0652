package usb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"

	"github.com/Conceptual-Machines/hb100-editor/internal/logger"
)

// Transport is the bulk endpoint pair a command talks through. Both calls
// apply the protocol's per-transfer deadline; a deadline hit surfaces as
// ErrTimedOut.
type Transport interface {
	BulkOut(p []byte) (int, error)
	BulkIn(p []byte) (int, error)
	Close() error
}

// Device is the gousb-backed transport to a connected HB100.
type Device struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface
	done func()
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint
}

// Open connects to the device by vendor/product id, detaches any kernel
// driver, claims interface 0 and resolves the bulk endpoint pair.
// debugLevel is handed to libusb (0..4).
func Open(debugLevel int) (*Device, error) {
	ctx := gousb.NewContext()
	ctx.Debug(debugLevel)
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(VendorID), gousb.ID(ProductID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("opening device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: no device %04x:%04x", ErrDisconnected, VendorID, ProductID)
	}
	if err := dev.SetAutoDetach(true); err != nil {
		logger.Warn("Could not enable kernel driver auto-detach", logger.Fields{"err": err})
	}
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("claiming interface: %w", err)
	}
	in, err := intf.InEndpoint(EndpointInNum)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("resolving IN endpoint: %w", err)
	}
	out, err := intf.OutEndpoint(EndpointOutNum)
	if err != nil {
		done()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("resolving OUT endpoint: %w", err)
	}
	d := &Device{ctx: ctx, dev: dev, intf: intf, done: done, in: in, out: out}
	d.logDescriptors()
	return d, nil
}

func (d *Device) logDescriptors() {
	logger.Info("Connected to the device", nil)
	if m, err := d.dev.Manufacturer(); err == nil && m != "" {
		logger.Info("  -- Manufacturer", logger.Fields{"value": m})
	}
	if p, err := d.dev.Product(); err == nil && p != "" {
		logger.Info("  -- Product", logger.Fields{"value": p})
	}
	if s, err := d.dev.SerialNumber(); err == nil && s != "" {
		logger.Info("  -- Serial Number", logger.Fields{"value": s})
	}
}

// BulkOut writes one buffer to the OUT endpoint.
func (d *Device) BulkOut(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	n, err := d.out.WriteContext(ctx, p)
	return n, classify(err)
}

// BulkIn reads one buffer from the IN endpoint.
func (d *Device) BulkIn(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	n, err := d.in.ReadContext(ctx, p)
	return n, classify(err)
}

// Close releases the interface and the libusb context.
func (d *Device) Close() error {
	if d.done != nil {
		d.done()
		d.done = nil
	}
	if d.dev != nil {
		d.dev.Close()
		d.dev = nil
	}
	if d.ctx != nil {
		d.ctx.Close()
		d.ctx = nil
	}
	return nil
}

// classify maps transport errors onto the engine's error kinds.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gousb.TransferTimedOut),
		errors.Is(err, gousb.TransferCancelled):
		return ErrTimedOut
	case errors.Is(err, gousb.TransferNoDevice):
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	default:
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
}
