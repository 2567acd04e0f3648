package game

// OrderableComponent holds the entity's order queue. Orders issued here
// never run directly: when a queued order reaches the front, the
// component — only on the peer that owns the entity — emits an
// OrderCommand into the simulation, and every peer (the owner included)
// begins the order when the command executes K turns later. The pending
// flag keeps the front order from being emitted twice while the command
// is in flight.
type OrderableComponent struct {
	baseComponent

	queue   []Order
	current Order
	pending bool
}

func (c *OrderableComponent) Kind() ComponentKind { return KindOrderable }

func (c *OrderableComponent) ApplyTemplate(t Table) error { return nil }

func (c *OrderableComponent) Initialize() {}

// IssueOrder appends an order to the queue. On non-owning peers the
// queue stays empty; they only ever see ExecuteOrder.
func (c *OrderableComponent) IssueOrder(o Order) {
	c.queue = append(c.queue, o)
}

// ExecuteOrder installs an order delivered by an OrderCommand and begins
// it. On the owning peer this also consumes the matching queue entry.
func (c *OrderableComponent) ExecuteOrder(o Order) {
	if len(c.queue) > 0 && c.queue[0].OrderID() == o.OrderID() {
		c.queue = c.queue[1:]
	}
	c.pending = false
	c.current = o
	o.Begin(c.entity)
}

// CurrentOrder returns the order in progress, or nil.
func (c *OrderableComponent) CurrentOrder() Order { return c.current }

// QueueLength returns the number of orders waiting behind the current one.
func (c *OrderableComponent) QueueLength() int { return len(c.queue) }

// IsIdle reports that nothing is running, queued, or in flight.
func (c *OrderableComponent) IsIdle() bool {
	return c.current == nil && len(c.queue) == 0 && !c.pending
}

func (c *OrderableComponent) Update(dt float32) {
	if c.current != nil {
		c.current.Update(c.entity, dt)
		if c.current.IsComplete(c.entity) {
			c.current = nil
		}
	}

	if c.current != nil || c.pending || len(c.queue) == 0 {
		return
	}

	sim := c.entity.mgr.Sim()
	if sim == nil || !sim.IsLocallyHosted(c.entity.id.PlayerNo()) {
		return
	}
	sim.PostCommandFrom(c.entity.id.PlayerNo(), &OrderCommand{
		Entity: c.entity.id,
		Order:  c.queue[0],
	})
	c.pending = true
}
