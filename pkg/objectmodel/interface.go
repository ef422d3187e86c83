// Package objectmodel defines the external collaborator boundary
// between the protocol core and an application's object database:
// internal/apdu depends only on these interfaces, never on a concrete
// object implementation.
package objectmodel

import (
	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/bacnet/service"
)

// NoIndex is returned by InstanceToIndex when the instance is not
// array-indexable by this object type.
const NoIndex = -1

// ReadPropertyRequest carries everything ReadProperty needs: the
// property identifier and an optional array index.
type ReadPropertyRequest struct {
	Property   uint32
	ArrayIndex *uint32
}

// WritePropertyRequest carries the decoded value(s) and write priority
// a WriteProperty call must apply.
type WritePropertyRequest struct {
	Property   uint32
	ArrayIndex *uint32
	Values     []bacapp.Value
	Priority   *uint8
}

// ObjectDescriptor is the per-object-type collaborator.
// Every method is keyed by instance number, not by a Go object
// reference, so a descriptor may be backed by anything from an
// in-memory slice to a remote database.
type ObjectDescriptor interface {
	// PropertyLists reports the required, optional, and proprietary
	// property identifiers this object type exposes.
	PropertyLists() (required, optional, proprietary []uint32)

	// ReadProperty returns the property's encoded value(s) or a
	// *service.ServiceError (e.g. ErrorCodeUnknownProperty).
	ReadProperty(instance uint32, r ReadPropertyRequest) ([]bacapp.Value, error)

	// WriteProperty applies a write or returns a *service.ServiceError
	// (e.g. ErrorCodeWriteAccessDenied).
	WriteProperty(instance uint32, w WritePropertyRequest) error

	// ObjectName returns the object's Object_Name property.
	ObjectName(instance uint32) (bacapp.CharacterString, error)

	// ValidInstance reports whether instance currently exists.
	ValidInstance(instance uint32) bool

	// InstanceToIndex maps an instance number to its position in this
	// type's object list, or NoIndex if the type has no stable
	// ordering.
	InstanceToIndex(instance uint32) int
}

// Database aggregates descriptors by object type, the unit the APDU
// dispatcher (internal/apdu) actually depends on.
type Database struct {
	descriptors map[uint16]ObjectDescriptor
}

// NewDatabase builds an empty Database.
func NewDatabase() *Database {
	return &Database{descriptors: make(map[uint16]ObjectDescriptor)}
}

// Register associates objectType with its descriptor. Registering the
// same type twice replaces the previous descriptor.
func (d *Database) Register(objectType uint16, desc ObjectDescriptor) {
	d.descriptors[objectType] = desc
}

// Descriptor looks up the descriptor for an object type, returning a
// *service.ServiceError{ErrorClassObject, ErrorCodeUnknownObject} when
// no type is registered.
func (d *Database) Descriptor(objectType uint16) (ObjectDescriptor, error) {
	desc, ok := d.descriptors[objectType]
	if !ok {
		return nil, unknownObjectError()
	}
	return desc, nil
}

func unknownObjectError() error {
	return &service.ServiceError{
		Class: service.ErrorClassObject,
		Code:  service.ErrorCodeUnknownObject,
		Msg:   "object type not registered",
	}
}
