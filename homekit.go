package multiio

import (
	"context"

	dnslog "github.com/brutella/dnssd/log"
	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	hklog "github.com/brutella/hap/log"
	"github.com/pkg/errors"
)

const defaultHomeKitDirectory = "./homekit"
const homeKitBridgeName = "multiio"
const homeKitBridgeAuthor = "github.com/hubertat"

// StartHomeKit serves the accessories on a HomeKit bridge until ctx is done.
func (mio *MultiIO) StartHomeKit(ctx context.Context, firmwareVersion string) error {
	hkName := mio.Name
	if len(hkName) < 1 {
		hkName = homeKitBridgeName
	}
	bridge := accessory.NewBridge(accessory.Info{
		Name:         hkName,
		Manufacturer: homeKitBridgeAuthor,
		Firmware:     firmwareVersion,
	})

	var store hap.Store
	if len(mio.HkDirectory) > 1 {
		store = hap.NewFsStore(mio.HkDirectory)
	} else {
		store = hap.NewFsStore(defaultHomeKitDirectory)
	}
	hkServer, err := hap.NewServer(store, bridge.A, mio.GetHkAccessories(firmwareVersion)...)
	if err != nil {
		return errors.Wrap(err, "failed to create HomeKit server")
	}
	hkServer.Pin = mio.HkPin
	if len(mio.HkAddress) > 0 {
		hkServer.Addr = mio.HkAddress
	}

	if mio.HkDebug {
		hklog.Debug.Enable()
		dnslog.Debug.Enable()
	}

	return hkServer.ListenAndServe(ctx)
}
