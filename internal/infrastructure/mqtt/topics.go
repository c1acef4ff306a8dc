package mqtt

// Relative topics under a device's client identifier.
const (
	// RelativeSwitch carries "ON", "OFF" and "TOGGLE".
	RelativeSwitch = "light/switch"

	// RelativeBrightnessSet carries an ASCII decimal duty level.
	RelativeBrightnessSet = "light/brightness/set"

	// RelativeCombined is the legacy single topic accepting both forms.
	RelativeCombined = "light"

	// RelativeSwitchState is the retained logical on/off state.
	RelativeSwitchState = "light/switch/state"

	// RelativeBrightnessState is the retained target duty level.
	RelativeBrightnessState = "light/brightness/state"

	// RelativeStatus is the retained availability topic and last will.
	RelativeStatus = "status"
)

// Topics provides builders for one device's MQTT topics.
// Every topic is "<ClientID>/<relative>", which keeps devices sharing a
// broker in separate namespaces.
//
//	topics := mqtt.Topics{ClientID: "ESP32ABCDEF"}
//	topics.Topic(mqtt.RelativeSwitch)
//	// Returns: "ESP32ABCDEF/light/switch"
type Topics struct {
	ClientID string
}

// Topic prefixes relative with the client identifier.
func (t Topics) Topic(relative string) string {
	return t.ClientID + "/" + relative
}

// Switch returns the on/off/toggle command topic.
//
// Example: ESP32d8a01d4018b4/light/switch
func (t Topics) Switch() string {
	return t.Topic(RelativeSwitch)
}

// BrightnessSet returns the brightness command topic.
//
// Example: ESP32d8a01d4018b4/light/brightness/set
func (t Topics) BrightnessSet() string {
	return t.Topic(RelativeBrightnessSet)
}

// Combined returns the legacy combined command topic.
//
// Example: ESP32d8a01d4018b4/light
func (t Topics) Combined() string {
	return t.Topic(RelativeCombined)
}

// SwitchState returns the retained on/off state topic.
//
// Example: ESP32d8a01d4018b4/light/switch/state
func (t Topics) SwitchState() string {
	return t.Topic(RelativeSwitchState)
}

// BrightnessState returns the retained brightness state topic.
//
// Example: ESP32d8a01d4018b4/light/brightness/state
func (t Topics) BrightnessState() string {
	return t.Topic(RelativeBrightnessState)
}

// Status returns the availability topic.
//
// Example: ESP32d8a01d4018b4/status
func (t Topics) Status() string {
	return t.Topic(RelativeStatus)
}
