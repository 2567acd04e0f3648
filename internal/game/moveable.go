package game

import (
	"math"

	"ravaged-planets/internal/vector"
)

// avoidanceRange is how close an obstacle entity must be before steering
// starts routing around it.
const avoidanceRange = 4.0

// MoveableComponent steers its entity toward a goal position at a
// configured speed and turn rate, optionally swerving around nearby
// entities on the way.
type MoveableComponent struct {
	baseComponent

	speed           float32 // units per second
	turnRate        float32 // radians per second
	avoidCollisions bool

	goal    vector.Vec3
	hasGoal bool

	position *PositionComponent
}

func (c *MoveableComponent) Kind() ComponentKind { return KindMoveable }

func (c *MoveableComponent) ApplyTemplate(t Table) error {
	c.speed = t.Float("speed", 2)
	c.turnRate = t.Float("turn_rate", 2)
	c.avoidCollisions = t.Bool("avoid_collisions", true)
	return nil
}

func (c *MoveableComponent) Initialize() {
	c.position = PositionOf(c.entity)
}

// SetGoal points the entity at a new goal.
func (c *MoveableComponent) SetGoal(goal vector.Vec3) {
	c.goal = goal
	c.hasGoal = true
}

// ClearGoal stops the entity.
func (c *MoveableComponent) ClearGoal() { c.hasGoal = false }

// Goal returns the current goal; ok is false when idle.
func (c *MoveableComponent) Goal() (vector.Vec3, bool) { return c.goal, c.hasGoal }

// IsMoving reports whether a goal is set.
func (c *MoveableComponent) IsMoving() bool { return c.hasGoal }

// Speed returns the configured linear speed.
func (c *MoveableComponent) Speed() float32 { return c.speed }

func (c *MoveableComponent) Update(dt float32) {
	if !c.hasGoal || c.position == nil {
		return
	}

	toGoal := c.position.DirectionTo(c.goal)
	toGoal.Y = 0
	dist := toGoal.Length()
	if dist < 0.1 {
		c.hasGoal = false
		return
	}
	targetDir := toGoal.Normalized()

	if c.avoidCollisions {
		if avoid, ok := c.avoidanceDir(dist); ok {
			targetDir = avoid
		}
	}

	forward := c.position.Forward()
	forward.Y = 0
	forward = forward.Normalized()

	// Near the goal, scale linear speed down and angular rate up so the
	// entity converges instead of orbiting.
	speed := c.speed
	turn := c.turnRate
	if closeness := dist / (1 / c.turnRate * 4); closeness < 1 {
		speed *= closeness
		turn /= vector.Clamp(closeness, 0.25, 1)
	}

	// The sign of the 90°-rotated dot picks the turn direction; a flip
	// after rotating means we passed the goal heading, so clamp onto it.
	side := forward.RotateY(math.Pi / 2).Dot(targetDir)
	step := turn * dt
	var rotated vector.Vec3
	if side >= 0 {
		rotated = forward.RotateY(step)
	} else {
		rotated = forward.RotateY(-step)
	}
	if newSide := rotated.RotateY(math.Pi / 2).Dot(targetDir); (side >= 0) != (newSide >= 0) {
		rotated = targetDir
	}

	advance := speed * dt
	if advance > dist {
		advance = dist
	}
	c.position.Set(c.position.Get().Add(rotated.Scale(advance)))
	c.position.SetForward(rotated)
}

// avoidanceDir finds the nearest obstacle entity ahead of us that is
// closer than the goal and steers perpendicular to it. The perpendicular
// is the obstacle direction crossed with world up, flipped to the side the
// heading already leans toward; when heading and obstacle direction are
// collinear (their cross product is shorter than 0.01) the unflipped,
// fixed-handed perpendicular is used so both peers pick the same side.
func (c *MoveableComponent) avoidanceDir(goalDist float32) (vector.Vec3, bool) {
	pos := c.position.Get()
	forward := c.position.Forward()

	var obstacleDir vector.Vec3
	obstacleDist := goalDist
	found := false
	for _, other := range c.entity.mgr.EntitiesNear(pos, avoidanceRange, c.entity.id) {
		op := PositionOf(other)
		if op == nil {
			continue
		}
		d := c.position.DirectionTo(op.Get())
		d.Y = 0
		dist := d.Length()
		if dist < 1e-3 || dist >= obstacleDist {
			continue
		}
		dir := d.Normalized()
		if forward.Dot(dir) <= 0 {
			continue // behind us, no swerve needed
		}
		obstacleDir = dir
		obstacleDist = dist
		found = true
	}
	if !found {
		return vector.Vec3{}, false
	}

	up := vector.Vec3{Y: 1}
	if forward.Cross(obstacleDir).Length() < 0.01 {
		// Dead ahead: both peers swerve the same fixed-handed way.
		return obstacleDir.Cross(up).Normalized(), true
	}
	perp := obstacleDir.Cross(up).Normalized()
	if forward.Dot(perp) < 0 {
		perp = perp.Scale(-1)
	}
	return perp, true
}
