package objectmodel

import (
	"sort"
	"sync"

	"github.com/bacnet-stack/bacnet-core/internal/bacapp"
	"github.com/bacnet-stack/bacnet-core/internal/bacnet/service"
)

// MemoryObject is one object instance's mutable property table, keyed
// by property identifier. It is the unit MemoryDescriptor stores.
type MemoryObject struct {
	Instance   uint32
	Name       bacapp.CharacterString
	Properties map[uint32][]bacapp.Value
}

// MemoryDescriptor is a minimal in-memory ObjectDescriptor, sufficient
// for tests and the demo CLI (not a full object model
// scopes a real implementation out).
type MemoryDescriptor struct {
	Required     []uint32
	Optional     []uint32
	Proprietary  []uint32
	WriteAllowed map[uint32]bool

	mu      sync.RWMutex
	objects map[uint32]*MemoryObject
}

// NewMemoryDescriptor builds an empty descriptor for the given property
// lists.
func NewMemoryDescriptor(required, optional, proprietary []uint32) *MemoryDescriptor {
	return &MemoryDescriptor{
		Required:    required,
		Optional:    optional,
		Proprietary: proprietary,
		objects:     make(map[uint32]*MemoryObject),
	}
}

// AddObject registers instance with the given name and initial
// property values, replacing any prior object at that instance.
func (d *MemoryDescriptor) AddObject(instance uint32, name string, properties map[uint32][]bacapp.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	props := make(map[uint32][]bacapp.Value, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	d.objects[instance] = &MemoryObject{
		Instance:   instance,
		Name:       bacapp.NewCharacterString(name),
		Properties: props,
	}
}

func (d *MemoryDescriptor) PropertyLists() (required, optional, proprietary []uint32) {
	return d.Required, d.Optional, d.Proprietary
}

func (d *MemoryDescriptor) ReadProperty(instance uint32, r ReadPropertyRequest) ([]bacapp.Value, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	obj, ok := d.objects[instance]
	if !ok {
		return nil, unknownInstanceError()
	}
	values, ok := obj.Properties[r.Property]
	if !ok {
		return nil, unknownPropertyError()
	}
	if r.ArrayIndex == nil {
		return values, nil
	}
	idx := int(*r.ArrayIndex)
	if idx < 1 || idx > len(values) {
		return nil, &service.ServiceError{
			Class: service.ErrorClassProperty,
			Code:  service.ErrorCodeInvalidArrayIndex,
			Msg:   "array index out of range",
		}
	}
	return values[idx-1 : idx], nil
}

func (d *MemoryDescriptor) WriteProperty(instance uint32, w WritePropertyRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.objects[instance]
	if !ok {
		return unknownInstanceError()
	}
	if d.WriteAllowed != nil && !d.WriteAllowed[w.Property] {
		return &service.ServiceError{
			Class: service.ErrorClassProperty,
			Code:  service.ErrorCodeWriteAccessDenied,
			Msg:   "property is read-only",
		}
	}
	if w.ArrayIndex != nil {
		idx := int(*w.ArrayIndex)
		existing := obj.Properties[w.Property]
		if idx < 1 || idx > len(existing) || len(w.Values) != 1 {
			return &service.ServiceError{
				Class: service.ErrorClassProperty,
				Code:  service.ErrorCodeInvalidArrayIndex,
				Msg:   "array index out of range",
			}
		}
		existing[idx-1] = w.Values[0]
		return nil
	}
	obj.Properties[w.Property] = w.Values
	return nil
}

func (d *MemoryDescriptor) ObjectName(instance uint32) (bacapp.CharacterString, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	obj, ok := d.objects[instance]
	if !ok {
		return bacapp.CharacterString{}, unknownInstanceError()
	}
	return obj.Name, nil
}

func (d *MemoryDescriptor) ValidInstance(instance uint32) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.objects[instance]
	return ok
}

func (d *MemoryDescriptor) InstanceToIndex(instance uint32) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	instances := make([]uint32, 0, len(d.objects))
	for i := range d.objects {
		instances = append(instances, i)
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i] < instances[j] })
	for idx, i := range instances {
		if i == instance {
			return idx
		}
	}
	return NoIndex
}

func unknownInstanceError() error {
	return &service.ServiceError{
		Class: service.ErrorClassObject,
		Code:  service.ErrorCodeUnknownObject,
		Msg:   "instance not found",
	}
}

func unknownPropertyError() error {
	return &service.ServiceError{
		Class: service.ErrorClassProperty,
		Code:  service.ErrorCodeUnknownProperty,
		Msg:   "property not found on this object",
	}
}
