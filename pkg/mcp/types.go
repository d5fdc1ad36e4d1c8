package mcp

import (
	"github.com/urmzd/hbconsole/pkg/accessory"
	"github.com/urmzd/hbconsole/pkg/db"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status (healthy or unhealthy)"`
	Bridge    string `json:"bridge" jsonschema:"description=Homebridge HAP API status"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- List Accessories Tool ---

// ListAccessoriesOutput is the output for the list_accessories tool
type ListAccessoriesOutput struct {
	Accessories []AccessoryInfo `json:"accessories" jsonschema:"description=Controllable services"`
	Count       int             `json:"count" jsonschema:"description=Number of services"`
}

// AccessoryInfo is a compact view of a service for tool outputs
type AccessoryInfo struct {
	AID             int                  `json:"aid" jsonschema:"description=Accessory id"`
	SIID            int                  `json:"siid" jsonschema:"description=Service instance id"`
	Name            string               `json:"name" jsonschema:"description=Service name"`
	Type            string               `json:"type" jsonschema:"description=Service type"`
	UniqueID        string               `json:"unique_id" jsonschema:"description=Stable service identifier used in layouts"`
	Characteristics []CharacteristicInfo `json:"characteristics" jsonschema:"description=Characteristics of the service"`
}

// CharacteristicInfo is a compact view of a characteristic
type CharacteristicInfo struct {
	IID      int    `json:"iid" jsonschema:"description=Characteristic instance id"`
	Type     string `json:"type" jsonschema:"description=Characteristic type"`
	Value    any    `json:"value" jsonschema:"description=Current value"`
	Format   string `json:"format" jsonschema:"description=Value format"`
	Writable bool   `json:"writable" jsonschema:"description=Whether set_characteristic can change it"`
}

// --- Set Characteristic Tool ---

// SetCharacteristicOutput is the output for the set_characteristic tool
type SetCharacteristicOutput struct {
	Success   bool          `json:"success" jsonschema:"description=Whether the write succeeded"`
	Accessory AccessoryInfo `json:"accessory" jsonschema:"description=Service state after the write"`
}

// --- Setup Code Tool ---

// GetSetupCodeOutput is the output for the get_setup_code tool
type GetSetupCodeOutput struct {
	SetupCode string `json:"setup_code" jsonschema:"description=X-HM:// setup URI"`
}

// --- Restart Tool ---

// RestartBridgeOutput is the output for the restart_bridge tool
type RestartBridgeOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether the restart was scheduled"`
	Command string `json:"command,omitempty" jsonschema:"description=Restart command that will run"`
}

// --- Layout Tool ---

// GetAccessoryLayoutOutput is the output for the get_accessory_layout tool
type GetAccessoryLayoutOutput struct {
	User   string    `json:"user" jsonschema:"description=UI username"`
	Layout db.Layout `json:"layout" jsonschema:"description=Rooms in display order"`
}

// --- Helper conversions ---

// ServiceToInfo converts an accessory.Service to AccessoryInfo
func ServiceToInfo(svc *accessory.Service) AccessoryInfo {
	info := AccessoryInfo{
		AID:             svc.AID,
		SIID:            svc.IID,
		Name:            svc.ServiceName,
		Type:            svc.Type,
		UniqueID:        svc.UniqueID,
		Characteristics: make([]CharacteristicInfo, 0, len(svc.Characteristics)),
	}
	for _, ch := range svc.Characteristics {
		info.Characteristics = append(info.Characteristics, CharacteristicInfo{
			IID:      ch.IID,
			Type:     ch.Type,
			Value:    ch.Value,
			Format:   ch.Format,
			Writable: ch.CanWrite,
		})
	}
	return info
}
