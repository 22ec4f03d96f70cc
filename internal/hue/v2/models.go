package v2

// On is the on/off feature of a light.
type On struct {
	On bool `json:"on"`
}

// Dimming is the brightness feature of a light, in percent (0-100).
type Dimming struct {
	Brightness float64 `json:"brightness"`
}

// Light represents a Hue light (V2 API / CLIP)
type Light struct {
	ID       string `json:"id"`
	IDV1     string `json:"id_v1,omitempty"`
	Metadata struct {
		Name      string `json:"name"`
		Archetype string `json:"archetype"`
	} `json:"metadata"`
	On      *On      `json:"on,omitempty"`
	Dimming *Dimming `json:"dimming,omitempty"`
}

// LightUpdate is the body of a light PUT. Nil features are left untouched.
type LightUpdate struct {
	On      *On      `json:"on,omitempty"`
	Dimming *Dimming `json:"dimming,omitempty"`
}

// apiError is one entry of the "errors" array returned by the bridge.
type apiError struct {
	Description string `json:"description"`
}
