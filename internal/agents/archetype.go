// Guard archetypes: tuning templates that give guards distinct temperaments.
// Each archetype scales a copy of the base GuardConfig.
package agents

import "sort"

// Archetype names.
const (
	ArchWatchman = "Watchman"
	ArchSentry   = "Sentry"
	ArchHound    = "Hound"
)

// Template scales the base configuration. Zero scales count as 1.
type Template struct {
	SpeedScale    float64 // Movement speed
	MemoryScale   float64 // How long sightings and noises are remembered
	CooldownScale float64 // Time between swings
	PauseScale    float64 // Dwell time at patrol points
	Weight        int     // Relative spawn frequency
}

var archetypeTemplates = map[string]Template{
	ArchWatchman: {Weight: 5},
	ArchSentry: {
		SpeedScale:  0.8,
		MemoryScale: 1.5, // Slow but does not forget
		PauseScale:  2,
		Weight:      3,
	},
	ArchHound: {
		SpeedScale:    1.35,
		MemoryScale:   0.7,
		CooldownScale: 0.75,
		PauseScale:    0.5,
		Weight:        2,
	},
}

// Archetypes lists archetype names in a stable order.
func Archetypes() []string {
	names := make([]string, 0, len(archetypeTemplates))
	for n := range archetypeTemplates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TemplateFor returns the archetype's template and whether it exists.
func TemplateFor(name string) (Template, bool) {
	t, ok := archetypeTemplates[name]
	return t, ok
}

// ApplyArchetype returns cfg adjusted for the named archetype. Unknown
// names leave cfg unchanged.
func ApplyArchetype(name string, cfg GuardConfig) GuardConfig {
	t, ok := archetypeTemplates[name]
	if !ok {
		return cfg
	}
	cfg.Locomotion.Speed *= scale(t.SpeedScale)
	cfg.Memory.PlayerSeconds *= scale(t.MemoryScale)
	cfg.Memory.NoiseSeconds *= scale(t.MemoryScale)
	cfg.AttackCooldown *= scale(t.CooldownScale)
	cfg.PatrolPause *= scale(t.PauseScale)
	return cfg
}

func scale(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}
