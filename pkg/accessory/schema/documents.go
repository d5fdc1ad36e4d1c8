package schema

import "encoding/json"

// ControlMessage describes the accessory-control event payload.
var ControlMessage = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"set": {
			"type": "object",
			"properties": {
				"aid": {"type": "integer", "minimum": 1},
				"siid": {"type": "integer", "minimum": 1},
				"iid": {"type": "integer", "minimum": 1},
				"value": {"type": ["boolean", "number", "string"]}
			},
			"required": ["aid", "siid", "iid", "value"]
		}
	}
}`)

// AccessoryLayout describes a user's room layout: an ordered list of rooms,
// each holding the unique ids of the services shown in it.
var AccessoryLayout = json.RawMessage(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"services": {
				"type": "array",
				"items": {"type": "string"}
			}
		},
		"required": ["name", "services"]
	}
}`)
