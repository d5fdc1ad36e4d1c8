package hap

import (
	"strings"
	"unicode"

	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

// appleUUIDSuffix is shared by every HAP-defined type uuid.
const appleUUIDSuffix = "-0000-1000-8000-0026BB765291"

// Service types that are plumbing rather than something to control.
var hiddenServices = map[string]bool{
	service.TypeAccessoryInformation: true,
	"A2":                             true, // Protocol Information
}

var serviceNames = map[string]string{
	service.TypeAccessoryInformation: "AccessoryInformation",
	service.TypeContactSensor:        "ContactSensor",
	service.TypeDoor:                 "Door",
	service.TypeFan:                  "Fan",
	service.TypeGarageDoorOpener:     "GarageDoorOpener",
	service.TypeHumiditySensor:       "HumiditySensor",
	service.TypeLeakSensor:           "LeakSensor",
	service.TypeLightSensor:          "LightSensor",
	service.TypeLightbulb:            "Lightbulb",
	service.TypeLockMechanism:        "LockMechanism",
	service.TypeMotionSensor:         "MotionSensor",
	service.TypeOccupancySensor:      "OccupancySensor",
	service.TypeOutlet:               "Outlet",
	service.TypeSecuritySystem:       "SecuritySystem",
	service.TypeSmokeSensor:          "SmokeSensor",
	service.TypeSwitch:               "Switch",
	service.TypeTemperatureSensor:    "TemperatureSensor",
	service.TypeThermostat:           "Thermostat",
	service.TypeWindow:               "Window",
	service.TypeWindowCovering:       "WindowCovering",
}

var characteristicNames = map[string]string{
	characteristic.TypeBatteryLevel:               "BatteryLevel",
	characteristic.TypeBrightness:                 "Brightness",
	characteristic.TypeColorTemperature:           "ColorTemperature",
	characteristic.TypeContactSensorState:         "ContactSensorState",
	characteristic.TypeCurrentDoorState:           "CurrentDoorState",
	characteristic.TypeCurrentHeatingCoolingState: "CurrentHeatingCoolingState",
	characteristic.TypeCurrentPosition:            "CurrentPosition",
	characteristic.TypeCurrentRelativeHumidity:    "CurrentRelativeHumidity",
	characteristic.TypeCurrentTemperature:         "CurrentTemperature",
	characteristic.TypeFirmwareRevision:           "FirmwareRevision",
	characteristic.TypeHue:                        "Hue",
	characteristic.TypeIdentify:                   "Identify",
	characteristic.TypeLockCurrentState:           "LockCurrentState",
	characteristic.TypeLockTargetState:            "LockTargetState",
	characteristic.TypeManufacturer:               "Manufacturer",
	characteristic.TypeModel:                      "Model",
	characteristic.TypeMotionDetected:             "MotionDetected",
	characteristic.TypeName:                       "Name",
	characteristic.TypeOn:                         "On",
	characteristic.TypeOutletInUse:                "OutletInUse",
	characteristic.TypeRotationSpeed:              "RotationSpeed",
	characteristic.TypeSaturation:                 "Saturation",
	characteristic.TypeSerialNumber:               "SerialNumber",
	characteristic.TypeStatusLowBattery:           "StatusLowBattery",
	characteristic.TypeTargetDoorState:            "TargetDoorState",
	characteristic.TypeTargetHeatingCoolingState:  "TargetHeatingCoolingState",
	characteristic.TypeTargetPosition:             "TargetPosition",
	characteristic.TypeTargetTemperature:          "TargetTemperature",
	characteristic.TypeTemperatureDisplayUnits:    "TemperatureDisplayUnits",
}

// shortType reduces a HAP type to its short form: "00000043-0000-1000-8000-0026BB765291"
// and "43" both become "43". Custom (non-Apple) uuids are returned upper-cased.
func shortType(t string) string {
	t = strings.ToUpper(t)
	if !strings.HasSuffix(t, appleUUIDSuffix) {
		if strings.Contains(t, "-") {
			return t
		}
		return strings.TrimLeft(t, "0")
	}
	short := strings.TrimLeft(strings.TrimSuffix(t, appleUUIDSuffix), "0")
	if short == "" {
		return "0"
	}
	return short
}

// fullUUID expands a short HAP type to its 128-bit uuid.
func fullUUID(short string) string {
	if strings.Contains(short, "-") {
		return short
	}
	return strings.Repeat("0", max(0, 8-len(short))) + short + appleUUIDSuffix
}

func serviceName(short string) string {
	if name, ok := serviceNames[short]; ok {
		return name
	}
	return short
}

func characteristicName(short string) string {
	if name, ok := characteristicNames[short]; ok {
		return name
	}
	return short
}

// humanize splits a type name into words: "GarageDoorOpener" -> "Garage Door Opener".
func humanize(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
