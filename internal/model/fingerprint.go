package model

// Fingerprint is an optional client-supplied description of the browser
// environment, posted alongside login requests. All fields are
// self-reported and therefore only usable as weak heuristics; absence of
// the whole object is not suspicious by itself.
type Fingerprint struct {
	Webdriver           bool   `json:"webdriver"`
	ScreenWidth         int    `json:"screen_width"`
	ScreenHeight        int    `json:"screen_height"`
	WindowWidth         int    `json:"window_width"`
	WindowHeight        int    `json:"window_height"`
	PluginCount         int    `json:"plugin_count"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
	DeviceMemory        int    `json:"device_memory"`
	Timezone            string `json:"timezone"`
	Language            string `json:"language"`
}
