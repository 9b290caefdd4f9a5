//go:build !no_mqtt

package mqtt

import (
	"fmt"

	"zwave-lock-bridge/internal/driver"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/lock/zwave_lock/lock/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers []string `json:"identifiers"`
	Model       string   `json:"model,omitempty"`
	Name        string   `json:"name"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic,omitempty"`
	AvailabilityTopic string   `json:"availability_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	PayloadOn         string   `json:"payload_on,omitempty"`
	PayloadOff        string   `json:"payload_off,omitempty"`
	PayloadLock       string   `json:"payload_lock,omitempty"`
	PayloadUnlock     string   `json:"payload_unlock,omitempty"`
	StateLocked       string   `json:"state_locked,omitempty"`
	StateUnlocked     string   `json:"state_unlocked,omitempty"`
	StateJammed       string   `json:"state_jammed,omitempty"`
	Device            haDevice `json:"device"`
}

// deviceIdentifier returns the unique identifier for the HA device registry.
func deviceIdentifier(name string) string {
	return "zwave_" + name
}

// buildDiscovery generates HA discovery messages for the lock: the lock
// entity, a battery sensor, and low-battery and jammed binary sensors.
func buildDiscovery(prefix, name string, status driver.Status) []discoveryMsg {
	avail := prefix + "/bridge/state"
	stateTopic := prefix + "/" + name
	nodeID := deviceIdentifier(name)

	model := status.Model
	if model == "" {
		model = "variant " + status.Variant
	}
	haDev := haDevice{
		Identifiers: []string{nodeID},
		Model:       model,
		Name:        name,
	}

	msgs := []discoveryMsg{
		buildLock(nodeID, name, stateTopic, avail, haDev),
		buildSensor(nodeID, name, stateTopic, avail, haDev,
			"battery", "Battery", "battery", "%", "measurement",
			"{{ value_json.battery }}"),
		buildBinarySensor(nodeID, name, stateTopic, avail, haDev,
			"battery_low", "Battery Low", "battery",
			"{{ 'ON' if value_json.battery_low else 'OFF' }}"),
		buildBinarySensor(nodeID, name, stateTopic, avail, haDev,
			"jammed", "Jammed", "problem",
			"{{ 'ON' if value_json.lock_state == 'jammed' else 'OFF' }}"),
	}
	return msgs
}

func buildLock(nodeID, name, stateTopic, avail string, haDev haDevice) discoveryMsg {
	topic := fmt.Sprintf("homeassistant/lock/%s/lock/config", nodeID)
	payload := haDiscovery{
		Name:              name,
		UniqueID:          nodeID + "_lock",
		StateTopic:        stateTopic,
		CommandTopic:      stateTopic + "/set",
		AvailabilityTopic: avail,
		ValueTemplate:     "{{ value_json.state }}",
		PayloadLock:       "LOCK",
		PayloadUnlock:     "UNLOCK",
		StateLocked:       "LOCKED",
		StateUnlocked:     "UNLOCKED",
		StateJammed:       "JAMMED",
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildSensor(nodeID, name, stateTopic, avail string, haDev haDevice,
	objectID, suffix, deviceClass, unit, stateClass, valueTmpl string) discoveryMsg {

	topic := fmt.Sprintf("homeassistant/sensor/%s/%s/config", nodeID, objectID)
	payload := haDiscovery{
		Name:              name + " " + suffix,
		UniqueID:          nodeID + "_" + objectID,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     valueTmpl,
		UnitOfMeasurement: unit,
		DeviceClass:       deviceClass,
		StateClass:        stateClass,
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

func buildBinarySensor(nodeID, name, stateTopic, avail string, haDev haDevice,
	objectID, suffix, deviceClass, valueTmpl string) discoveryMsg {

	topic := fmt.Sprintf("homeassistant/binary_sensor/%s/%s/config", nodeID, objectID)
	payload := haDiscovery{
		Name:              name + " " + suffix,
		UniqueID:          nodeID + "_" + objectID,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		ValueTemplate:     valueTmpl,
		DeviceClass:       deviceClass,
		PayloadOn:         "ON",
		PayloadOff:        "OFF",
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

// buildRemoveDiscovery generates empty retained messages to remove the
// device from HA when the lock is unpaired.
func buildRemoveDiscovery(prefix, name string) []discoveryMsg {
	nodeID := deviceIdentifier(name)

	components := []struct{ comp, obj string }{
		{"lock", "lock"},
		{"sensor", "battery"},
		{"binary_sensor", "battery_low"},
		{"binary_sensor", "jammed"},
	}

	var msgs []discoveryMsg
	for _, c := range components {
		msgs = append(msgs, discoveryMsg{
			Topic:   fmt.Sprintf("homeassistant/%s/%s/%s/config", c.comp, nodeID, c.obj),
			Payload: nil, // empty retained = delete
		})
	}
	return msgs
}
