package camera

// Preset names, one per tracking profile
const (
	PresetWeighted = "weighted"
	PresetPID      = "pid"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetWeighted: WeightedConfig(),
		PresetPID:      PIDConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetWeighted, PresetPID}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// WeightedConfig pairs with the weighted tracking profile.
func WeightedConfig() Config {
	return DefaultConfig()
}

// PIDConfig pairs with the pid tracking profile. The heavier green-channel
// pipeline runs at half the frame rate.
func PIDConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15
	return cfg
}
