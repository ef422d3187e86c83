// Package device wires the protocol core (internal/apdu,
// internal/datalink, internal/tsm) to a concrete BACnet device: it
// registers the confirmed and unconfirmed service handlers every
// conformant device must answer, and owns the Device object's own
// property values, the role pkg/controlplane/runtime.Runtime plays
// for protocol adapters, scaled down to a single protocol with no
// multi-tenant registry.
package device

import (
	"bytes"
	"context"
	"time"

	"github.com/bacnet-stack/bacnet-core/internal/apdu"
	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/bacnet/service"
	"github.com/bacnet-stack/bacnet-core/internal/datalink"
	"github.com/bacnet-stack/bacnet-core/internal/logger"
	"github.com/bacnet-stack/bacnet-core/internal/tsm"
	"github.com/bacnet-stack/bacnet-core/pkg/config"
	"github.com/bacnet-stack/bacnet-core/pkg/metrics"
	"github.com/bacnet-stack/bacnet-core/pkg/objectmodel"
)

// Standard object type and property identifiers this package needs
// that aren't otherwise codified in internal/bacapp (ANSI/ASHRAE 135
// clause 21, Object_Type and Property_Identifier enumerations).
const (
	objectTypeDevice uint16 = 8

	propObjectIdentifier       uint32 = 75
	propObjectName             uint32 = 77
	propObjectType             uint32 = 79
	propSystemStatus           uint32 = 112
	propVendorName             uint32 = 121
	propVendorIdentifier       uint32 = 120
	propModelName              uint32 = 70
	propFirmwareRevision       uint32 = 44
	propProtocolVersion        uint32 = 98
	propProtocolRevision       uint32 = 139
	propMaxAPDULengthAccepted  uint32 = 62
	propSegmentationSupported  uint32 = 107
	propAPDUTimeout            uint32 = 11
	propNumberOfAPDURetries    uint32 = 73
	propDatabaseRevision       uint32 = 155
)

// systemStatusOperational is BACnetDeviceStatus::operational (0), the
// only status value this module ever reports.
const systemStatusOperational uint32 = 0

// buildDeviceDescriptor constructs the Device object's own
// ObjectDescriptor, seeded with the required properties a conformant
// device must expose for ReadProperty.
func (d *Device) buildDeviceDescriptor() objectmodel.ObjectDescriptor {
	required := []uint32{
		propObjectIdentifier, propObjectName, propObjectType, propSystemStatus,
		propVendorName, propVendorIdentifier, propProtocolVersion, propProtocolRevision,
		propMaxAPDULengthAccepted, propSegmentationSupported, propAPDUTimeout,
		propNumberOfAPDURetries, propDatabaseRevision,
	}
	desc := objectmodel.NewMemoryDescriptor(required, []uint32{propModelName, propFirmwareRevision}, nil)
	desc.WriteAllowed = map[uint32]bool{propObjectName: true}

	objectName := d.cfg.ObjectName
	if objectName == "" {
		objectName = "bacnet-core Device"
	}

	desc.AddObject(d.cfg.Instance, objectName, map[uint32][]bacapp.Value{
		propObjectIdentifier:      {bacapp.ObjectIDValue(bacapp.ObjectID{Type: objectTypeDevice, Instance: d.cfg.Instance})},
		propObjectName:            {bacapp.StringValue(objectName)},
		propObjectType:            {bacapp.EnumeratedValue(uint32(objectTypeDevice))},
		propSystemStatus:          {bacapp.EnumeratedValue(systemStatusOperational)},
		propVendorName:            {bacapp.StringValue("bacnet-core")},
		propVendorIdentifier:      {bacapp.UnsignedValue(uint64(d.cfg.VendorID))},
		propProtocolVersion:       {bacapp.UnsignedValue(1)},
		propProtocolRevision:      {bacapp.UnsignedValue(22)},
		propMaxAPDULengthAccepted: {bacapp.UnsignedValue(uint64(d.maxAPDULength))},
		propSegmentationSupported: {bacapp.EnumeratedValue(uint32(d.segSupport))},
		propAPDUTimeout:           {bacapp.UnsignedValue(5000)},
		propNumberOfAPDURetries:   {bacapp.UnsignedValue(3)},
		propDatabaseRevision:      {bacapp.UnsignedValue(0)},
	})
	return desc
}

// Device ties the object database, the APDU dispatcher, the
// transaction state machine, and a Port together into a running BACnet
// device.
type Device struct {
	cfg     config.DeviceConfig
	db      *objectmodel.Database
	port    *datalink.Port
	tsm     *tsm.Manager
	metrics *metrics.Metrics

	maxAPDULength int
	windowSize    int
	segSupport    service.Segmentation

	startedAt time.Time
}

// New builds a Device and registers its own Device object in db.
// RegisterHandlers wires the handlers onto a dispatcher; callers still
// need to route port.OnAPDU to that dispatcher themselves. New does not
// reach into port.OnAPDU so tests can drive the dispatcher directly
// without going through a Port.
func New(cfg *config.Config, db *objectmodel.Database, port *datalink.Port, m *metrics.Metrics) *Device {
	d := &Device{
		cfg:           cfg.Device,
		db:            db,
		port:          port,
		tsm:           tsm.NewManager(5*time.Second, 3),
		metrics:       m,
		maxAPDULength: int(cfg.Segmentation.MaxAPDULength),
		windowSize:    cfg.Segmentation.WindowSize,
		segSupport:    service.SegmentationNone,
		startedAt:     time.Now(),
	}
	db.Register(objectTypeDevice, d.buildDeviceDescriptor())
	return d
}

// StartedAt returns the time New built this Device, used by the status
// and health-check surfaces to report uptime.
func (d *Device) StartedAt() time.Time {
	return d.startedAt
}

// RegisterHandlers wires every service this module implements onto
// dispatcher.
func (d *Device) RegisterHandlers(dispatcher *apdu.Dispatcher) {
	dispatcher.RegisterConfirmed(service.ConfirmedReadProperty, d.handleReadProperty)
	dispatcher.RegisterConfirmed(service.ConfirmedWriteProperty, d.handleWriteProperty)
	dispatcher.RegisterConfirmed(service.ConfirmedDeviceCommunicationControl, d.handleDCC)
	dispatcher.RegisterUnconfirmed(service.UnconfirmedWhoIs, d.handleWhoIs)
	dispatcher.RegisterUnconfirmed(service.UnconfirmedTimeSynchronization, d.handleTimeSync)
	dispatcher.RegisterUnconfirmed(service.UnconfirmedUTCTimeSynchronization, d.handleTimeSync)
}

// AnnounceIAm broadcasts an unsolicited I-Am, the way a device
// identifies itself on the network at startup.
func (d *Device) AnnounceIAm(now time.Time) error {
	return d.sendIAm(bacapp.Address{}, now)
}

func (d *Device) sendIAm(dest bacapp.Address, now time.Time) error {
	var buf bytes.Buffer
	service.EncodeIAmRequest(&buf, service.IAmRequest{
		Device:       bacapp.ObjectID{Type: objectTypeDevice, Instance: d.cfg.Instance},
		MaxAPDU:      uint32(d.maxAPDULength),
		Segmentation: d.segSupport,
		VendorID:     d.cfg.VendorID,
	})
	apduBytes := apdu.EncodeUnconfirmedRequest(apdu.UnconfirmedRequest{
		ServiceChoice: service.UnconfirmedIAm,
		ServiceData:   buf.Bytes(),
	})
	d.metrics.ObserveAPDUSent("unconfirmed-request")
	return d.port.SendAPDU(dest, apduBytes, false, datalink.PriorityNormal, now)
}

func (d *Device) handleReadProperty(ctx context.Context, src bacapp.Address, data []byte) (*apdu.HandlerResult, error) {
	req, _, err := service.DecodeReadPropertyRequest(data)
	if err != nil {
		return apdu.ErrorResultFromServiceError(err)
	}

	desc, err := d.db.Descriptor(req.Object.Type)
	if err != nil {
		logger.Debug("device: read-property for unknown object", logger.ObjectRef(req.Object.Type, req.Object.Instance))
		d.metrics.ObserveServiceError("object")
		return apdu.ErrorResultFromServiceError(err)
	}

	values, err := desc.ReadProperty(req.Object.Instance, objectmodel.ReadPropertyRequest{
		Property:   req.Property,
		ArrayIndex: req.ArrayIndex,
	})
	if err != nil {
		d.metrics.ObserveServiceError("property")
		return apdu.ErrorResultFromServiceError(err)
	}

	var buf bytes.Buffer
	if err := service.EncodeReadPropertyAck(&buf, service.ReadPropertyAck{
		Object:     req.Object,
		Property:   req.Property,
		ArrayIndex: req.ArrayIndex,
		Values:     values,
	}); err != nil {
		return nil, err
	}
	return &apdu.HandlerResult{Data: buf.Bytes()}, nil
}

func (d *Device) handleWriteProperty(ctx context.Context, src bacapp.Address, data []byte) (*apdu.HandlerResult, error) {
	req, _, err := service.DecodeWritePropertyRequest(data)
	if err != nil {
		return apdu.ErrorResultFromServiceError(err)
	}

	desc, err := d.db.Descriptor(req.Object.Type)
	if err != nil {
		logger.Debug("device: write-property for unknown object", logger.ObjectRef(req.Object.Type, req.Object.Instance))
		d.metrics.ObserveServiceError("object")
		return apdu.ErrorResultFromServiceError(err)
	}

	priority := req.Priority
	err = desc.WriteProperty(req.Object.Instance, objectmodel.WritePropertyRequest{
		Property:   req.Property,
		ArrayIndex: req.ArrayIndex,
		Values:     []bacapp.Value{req.Value},
		Priority:   priority,
	})
	if err != nil {
		d.metrics.ObserveServiceError("property")
		return apdu.ErrorResultFromServiceError(err)
	}
	return &apdu.HandlerResult{}, nil
}

func (d *Device) handleDCC(ctx context.Context, src bacapp.Address, data []byte) (*apdu.HandlerResult, error) {
	req, _, err := service.DecodeDeviceCommunicationControlRequest(data)
	if err != nil {
		return apdu.ErrorResultFromServiceError(err)
	}

	var configured *string
	if d.cfg.DCCPassword != "" {
		p := d.cfg.DCCPassword
		configured = &p
	}
	if err := service.CheckPassword(configured, req.Password); err != nil {
		d.metrics.ObserveServiceError("security")
		return apdu.ErrorResultFromServiceError(err)
	}

	status := datalink.DCCEnabled
	switch req.State {
	case service.CommunicationDisable:
		status = datalink.DCCDisabled
	case service.CommunicationDisableInitiation:
		status = datalink.DCCDisabledInitiation
	}
	duration := time.Duration(0)
	if req.Duration != nil {
		duration = time.Duration(*req.Duration) * time.Minute
	}
	d.port.DCC.Apply(status, duration, time.Now())
	d.metrics.SetDCCStatus(int(status))
	return &apdu.HandlerResult{}, nil
}

func (d *Device) handleWhoIs(ctx context.Context, src bacapp.Address, data []byte) {
	req, _, err := service.DecodeWhoIsRequest(data)
	if err != nil {
		logger.Debug("device: malformed who-is", "src", src, "error", err)
		return
	}
	if !req.Matches(d.cfg.Instance) {
		return
	}
	if err := d.sendIAm(src, time.Now()); err != nil {
		logger.Warn("device: failed to answer who-is with i-am", "error", err)
	}
}

func (d *Device) handleTimeSync(ctx context.Context, src bacapp.Address, data []byte) {
	req, _, err := service.DecodeTimeSynchronizationRequest(data)
	if err != nil {
		logger.Debug("device: malformed time-synchronization", "src", src, "error", err)
		return
	}
	logger.Info("device: time synchronization received", "src", src, "date", req.Date, "time", req.Time)
}
