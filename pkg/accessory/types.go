package accessory

import "context"

// Service is one controllable service of a bridged accessory, as exposed
// by the bridge's HAP API.
type Service struct {
	AID                  int              `json:"aid"`
	IID                  int              `json:"iid"`
	UUID                 string           `json:"uuid"`
	Type                 string           `json:"type"`      // Service type name (Lightbulb, Switch, ...)
	HumanType            string           `json:"humanType"` // Type split into words
	ServiceName          string           `json:"serviceName"`
	Characteristics      []Characteristic `json:"serviceCharacteristics"`
	AccessoryInformation map[string]any   `json:"accessoryInformation"`
	Values               map[string]any   `json:"values"` // Characteristic type name -> value
	Instance             Instance         `json:"instance"`
	UniqueID             string           `json:"uniqueId"`
}

// Characteristic is a single readable or writable attribute of a service.
type Characteristic struct {
	AID         int      `json:"aid"`
	IID         int      `json:"iid"`
	UUID        string   `json:"uuid"`
	Type        string   `json:"type"`
	ServiceType string   `json:"serviceType"`
	ServiceName string   `json:"serviceName"`
	Description string   `json:"description"`
	Value       any      `json:"value"`
	Format      string   `json:"format"`
	Perms       []string `json:"perms"`
	Unit        string   `json:"unit,omitempty"`
	MaxValue    *float64 `json:"maxValue,omitempty"`
	MinValue    *float64 `json:"minValue,omitempty"`
	MinStep     *float64 `json:"minStep,omitempty"`
	CanRead     bool     `json:"canRead"`
	CanWrite    bool     `json:"canWrite"`
}

// Instance identifies the bridge a service was loaded from.
type Instance struct {
	Name      string `json:"name"`
	IPAddress string `json:"ipAddress"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
}

// SetRequest is the payload of an accessory-control set command.
type SetRequest struct {
	AID   int `json:"aid"`
	SIID  int `json:"siid"` // Service instance id
	IID   int `json:"iid"`  // Characteristic instance id
	Value any `json:"value"`
}

// ControlMessage is the inbound accessory-control event payload.
type ControlMessage struct {
	Set *SetRequest `json:"set,omitempty"`
}

// Client talks to the bridge that owns the accessories.
type Client interface {
	// ListServices returns every controllable service on the bridge
	ListServices(ctx context.Context) ([]Service, error)

	// SetCharacteristic writes value to characteristic iid of svc
	SetCharacteristic(ctx context.Context, svc *Service, iid int, value any) error

	// RefreshCharacteristics re-reads the characteristic values of svc in place
	RefreshCharacteristics(ctx context.Context, svc *Service) error
}

// FindService returns the service matching the accessory and service
// instance ids, or nil.
func FindService(services []Service, aid, iid int) *Service {
	for i := range services {
		if services[i].AID == aid && services[i].IID == iid {
			return &services[i]
		}
	}
	return nil
}

// Characteristic returns the characteristic with instance id iid, or nil.
func (s *Service) Characteristic(iid int) *Characteristic {
	for i := range s.Characteristics {
		if s.Characteristics[i].IID == iid {
			return &s.Characteristics[i]
		}
	}
	return nil
}
