package usbtmc

import (
	"github.com/google/gousb"
	"github.com/panduza/pza-runtime/pkg/log"
	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// DeviceSettings identifies a USB device by vendor/product ID, mirroring
// original_source/src/interface/usb/settings.rs.
type DeviceSettings struct {
	VendorID  gousb.ID
	ProductID gousb.ID
}

// OpenedDevice bundles a claimed gousb interface with the resources that
// must be released together.
type OpenedDevice struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface

	Driver *Driver
}

// Open finds the USB device matching settings, claims its first interface,
// discovers its bulk IN/OUT endpoints and returns a ready-to-use Driver.
func Open(settings DeviceSettings) (*OpenedDevice, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(settings.VendorID, settings.ProductID)
	if err != nil || dev == nil {
		ctx.Close()
		return nil, pzaerr.DriverWrap(err, "usbtmc: unable to open USB device")
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, pzaerr.DriverWrap(err, "usbtmc: unable to set auto-detach")
	}

	config, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, pzaerr.DriverWrap(err, "usbtmc: unable to claim config")
	}

	intf, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, pzaerr.DriverWrap(err, "usbtmc: unable to claim interface")
	}

	inAddr, outAddr, maxPacketIn, err := findEndpoints(intf)
	if err != nil {
		intf.Close()
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, err
	}

	inEP, err := intf.InEndpoint(int(inAddr & 0x0f))
	if err != nil {
		intf.Close()
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, pzaerr.DriverWrap(err, "usbtmc: unable to open IN endpoint")
	}
	outEP, err := intf.OutEndpoint(int(outAddr & 0x0f))
	if err != nil {
		intf.Close()
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, pzaerr.DriverWrap(err, "usbtmc: unable to open OUT endpoint")
	}

	driver := New(inEP, outEP, Options{
		MaxPacketIn: maxPacketIn,
		OnUnexpectedEndpoint: func(address, expected byte) {
			log.Logger.Warn().Msgf("usbtmc: endpoint address %#02x, expected %#02x", address, expected)
		},
	})
	driver.CheckEndpointAddresses(inAddr, outAddr)

	return &OpenedDevice{ctx: ctx, dev: dev, config: config, intf: intf, Driver: driver}, nil
}

// findEndpoints scans the interface's active setting for bulk IN and OUT
// endpoints, warning (via the caller) when their addresses are not the
// conventional 0x81/0x02 pair.
func findEndpoints(intf *gousb.Interface) (inAddr, outAddr byte, maxPacketIn int, err error) {
	var foundIn, foundOut bool
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionIn:
			inAddr = byte(ep.Address)
			maxPacketIn = ep.MaxPacketSize
			foundIn = true
		case gousb.EndpointDirectionOut:
			outAddr = byte(ep.Address)
			foundOut = true
		}
	}
	if !foundIn {
		return 0, 0, 0, pzaerr.DriverWrap(nil, "usbtmc: no bulk IN endpoint found")
	}
	if !foundOut {
		return 0, 0, 0, pzaerr.DriverWrap(nil, "usbtmc: no bulk OUT endpoint found")
	}
	return inAddr, outAddr, maxPacketIn, nil
}

// Close releases the interface, config, device and USB context, in that
// order.
func (o *OpenedDevice) Close() error {
	o.intf.Close()
	o.config.Close()
	if err := o.dev.Close(); err != nil {
		o.ctx.Close()
		return pzaerr.DriverWrap(err, "usbtmc: error closing device")
	}
	return o.ctx.Close()
}
