package game

// The audio and particle components are data carriers: the simulation
// core decides *that* a cue or effect plays and exposes the name through
// the snapshot; actually playing it is the audio/VFX layer's business.

// AudioComponent names the sound cues an entity can trigger. A cue set by
// Trigger is held for one snapshot and cleared. No component in this
// package calls Trigger; weapon fire and death set no cue.
type AudioComponent struct {
	baseComponent

	cues       map[string]string // event name -> cue name
	pendingCue string
}

func (c *AudioComponent) Kind() ComponentKind { return KindAudio }

func (c *AudioComponent) ApplyTemplate(t Table) error {
	c.cues = make(map[string]string)
	for key, attr := range t {
		c.cues[key] = attr.AsString()
	}
	return nil
}

func (c *AudioComponent) Initialize() {}

func (c *AudioComponent) Update(dt float32) {}

// Trigger queues the cue mapped to the named event, if any.
func (c *AudioComponent) Trigger(event string) {
	if cue, ok := c.cues[event]; ok {
		c.pendingCue = cue
	}
}

// TakeCue returns and clears the pending cue.
func (c *AudioComponent) TakeCue() string {
	cue := c.pendingCue
	c.pendingCue = ""
	return cue
}

// ParticleEffectComponent names the particle effect attached to the
// entity (smoke trails, explosion flashes). The renderer reads the name
// from the snapshot. A positive lifetime makes the entity transient —
// explosion entities remove themselves once the effect has played out.
type ParticleEffectComponent struct {
	baseComponent

	effectName string
	lifetime   float32 // seconds; 0 = permanent
	age        float32
	started    bool
}

func (c *ParticleEffectComponent) Kind() ComponentKind { return KindParticleEffect }

func (c *ParticleEffectComponent) ApplyTemplate(t Table) error {
	c.effectName = t.String("effect", "")
	c.lifetime = t.Float("lifetime", 0)
	return nil
}

func (c *ParticleEffectComponent) Initialize() {
	c.started = c.effectName != ""
}

func (c *ParticleEffectComponent) Update(dt float32) {
	if c.lifetime <= 0 {
		return
	}
	c.age += dt
	if c.age >= c.lifetime {
		c.entity.mgr.Destroy(c.entity.id)
	}
}

// EffectName returns the active effect, or "" when none.
func (c *ParticleEffectComponent) EffectName() string {
	if !c.started {
		return ""
	}
	return c.effectName
}
