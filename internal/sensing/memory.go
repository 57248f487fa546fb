package sensing

import "github.com/talgya/warden/internal/geom"

// Percepts is what the outside world reports to one guard this tick.
type Percepts struct {
	PlayerVisible bool      `json:"player_visible"`
	PlayerPos     geom.Vec3 `json:"player_pos"`
	NoiseHeard    bool      `json:"noise_heard"`
	NoisePos      geom.Vec3 `json:"noise_pos"`
	NoiseLoudness float64   `json:"noise_loudness"` // 0.0–1.0
}

// MemoryConfig sets how long sightings and sounds are remembered.
type MemoryConfig struct {
	PlayerSeconds float64 `yaml:"memory_seconds"`
	NoiseSeconds  float64 `yaml:"noise_memory_seconds"`
}

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{PlayerSeconds: 8, NoiseSeconds: 6}
}

// Memory is a guard's short-term recall of the player and of the most
// significant recent noise. Entries expire after their configured lifetime.
type Memory struct {
	cfg MemoryConfig

	playerKnown bool
	lastKnown   geom.Vec3
	playerTTL   float64
	checked     bool

	noiseActive  bool
	noisePos     geom.Vec3
	loudness     float64
	noiseTTL     float64
	investigated bool
}

func NewMemory(cfg MemoryConfig) *Memory {
	return &Memory{cfg: cfg}
}

// Observe records this tick's percepts. A sighting refreshes the last-known
// position and clears the checked flag. A new noise replaces the remembered
// one unless the remembered one is louder and still uninvestigated.
func (m *Memory) Observe(p Percepts) {
	if p.PlayerVisible {
		m.playerKnown = true
		m.lastKnown = p.PlayerPos
		m.playerTTL = m.cfg.PlayerSeconds
		m.checked = false
	}
	if p.NoiseHeard {
		if m.noiseActive && !m.investigated && p.NoiseLoudness < m.loudness {
			return
		}
		m.noiseActive = true
		m.noisePos = p.NoisePos
		m.loudness = p.NoiseLoudness
		m.noiseTTL = m.cfg.NoiseSeconds
		m.investigated = false
	}
}

// Decay ages both memories by dt seconds.
func (m *Memory) Decay(dt float64) {
	if m.playerKnown {
		m.playerTTL -= dt
		if m.playerTTL <= 0 {
			m.ForgetPlayer()
		}
	}
	if m.noiseActive {
		m.noiseTTL -= dt
		if m.noiseTTL <= 0 {
			m.ForgetNoise()
		}
	}
}

func (m *Memory) ForgetPlayer() {
	m.playerKnown = false
	m.playerTTL = 0
	m.checked = false
}

func (m *Memory) ForgetNoise() {
	m.noiseActive = false
	m.noiseTTL = 0
	m.loudness = 0
	m.investigated = false
}

// LastKnown returns the remembered player position.
func (m *Memory) LastKnown() (geom.Vec3, bool) { return m.lastKnown, m.playerKnown }

// Noise returns the remembered noise position and loudness.
func (m *Memory) Noise() (geom.Vec3, float64, bool) { return m.noisePos, m.loudness, m.noiseActive }

// MarkLastKnownChecked records that the guard reached the last-known position.
func (m *Memory) MarkLastKnownChecked() {
	if m.playerKnown {
		m.checked = true
	}
}

// MarkNoiseInvestigated records that the guard reached the noise source.
func (m *Memory) MarkNoiseInvestigated() {
	if m.noiseActive {
		m.investigated = true
	}
}

func (m *Memory) LastKnownChecked() bool  { return m.checked }
func (m *Memory) NoiseInvestigated() bool { return m.investigated }

// PlayerSecondsLeft reports how long the sighting is still remembered.
func (m *Memory) PlayerSecondsLeft() float64 { return m.playerTTL }
