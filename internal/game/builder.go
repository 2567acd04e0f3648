package game

// buildOffset is how far in front of the builder a finished entity
// appears.
const buildOffset = 3.0

// BuilderComponent consumes build orders: it counts the active build down
// and, on completion, the owning peer posts a CreateEntityCommand so the
// new entity appears on every peer in lockstep.
type BuilderComponent struct {
	baseComponent

	buildTimes map[string]float32 // template name -> seconds

	building      bool
	templateName  string
	timeToBuild   float32
	timeRemaining float32
}

func (c *BuilderComponent) Kind() ComponentKind { return KindBuilder }

func (c *BuilderComponent) ApplyTemplate(t Table) error {
	c.buildTimes = make(map[string]float32)
	// Template keys of the form "build_<name>" declare what this builder
	// can produce and how long each takes.
	for key, attr := range t {
		if len(key) > 6 && key[:6] == "build_" {
			c.buildTimes[key[6:]] = attr.AsFloat()
		}
	}
	return nil
}

func (c *BuilderComponent) Initialize() {}

// IsBuilding reports whether a build is in progress.
func (c *BuilderComponent) IsBuilding() bool { return c.building }

// Building returns the template under construction and time remaining.
func (c *BuilderComponent) Building() (string, float32) {
	return c.templateName, c.timeRemaining
}

// StartBuild begins constructing the named template. The build time comes
// from the builder's own table, falling back to the product template's
// time_to_build attribute, then a flat 10 seconds.
func (c *BuilderComponent) StartBuild(templateName string) {
	c.building = true
	c.templateName = templateName
	c.timeToBuild = c.lookupBuildTime(templateName)
	c.timeRemaining = c.timeToBuild
}

func (c *BuilderComponent) lookupBuildTime(templateName string) float32 {
	if t, ok := c.buildTimes[templateName]; ok {
		return t
	}
	if tmpl := c.entity.mgr.Templates().Get(templateName); tmpl != nil {
		if a, ok := tmpl.Attributes["time_to_build"]; ok {
			return a.AsFloat()
		}
	}
	return 10
}

func (c *BuilderComponent) Update(dt float32) {
	if !c.building {
		return
	}
	c.timeRemaining -= dt
	// The tolerance absorbs float32 drift: 30 steps of 0.2 leave about
	// 1e-6 of a 6 s build, which must still finish on the 30th update.
	if c.timeRemaining > 1e-4 {
		return
	}
	c.building = false

	sim := c.entity.mgr.Sim()
	owner := c.entity.id.PlayerNo()
	if sim == nil || !sim.IsLocallyHosted(owner) {
		// Non-owning peers run the countdown for state parity but the
		// owner alone announces the product.
		return
	}

	id, err := c.entity.mgr.AllocateID(owner)
	if err != nil {
		sim.Fatalf("builder %v: %v", c.entity.id, err)
		return
	}

	pos := PositionOf(c.entity)
	spawn := pos.Get().Add(pos.Forward().Scale(buildOffset))
	sim.PostCommandFrom(owner, &CreateEntityCommand{
		ID:       id,
		Template: c.templateName,
		Pos:      spawn,
		Goal:     spawn.Add(pos.Forward().Scale(buildOffset)),
	})
}
