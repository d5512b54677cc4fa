package client

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

const (
	MinZoom = 0.25
	MaxZoom = 4.0
)

// Viewport is the local pan and zoom of the canvas. It is never shared.
type Viewport struct {
	Offset model.Point
	Zoom   float64
}

// Canvas applies gestures optimistically: the local cache changes first, the
// change is broadcast to peers, and the durable write runs in the background.
// Elements with a write in flight or a failed write report Unsynced.
type Canvas struct {
	board *Board
	api   API
	ch    Channel
	user  model.Identity
	log   zerolog.Logger

	writes sync.WaitGroup

	mu   sync.Mutex
	view Viewport
}

// NewCanvas binds gestures on board to the given transports
func NewCanvas(board *Board, api API, ch Channel, user model.Identity, log zerolog.Logger) *Canvas {
	return &Canvas{
		board: board,
		api:   api,
		ch:    ch,
		user:  user,
		log:   log.With().Str("component", "Canvas").Str("session", board.SessionID()).Logger(),
		view:  Viewport{Zoom: 1},
	}
}

// Add places a new element. Missing fields get the sticky-note defaults.
func (c *Canvas) Add(ctx context.Context, el model.CanvasElement) (model.CanvasElement, error) {
	if err := c.board.checkWritable(); err != nil {
		return model.CanvasElement{}, err
	}
	now := c.board.clock.Now().UTC()
	if el.ID == "" {
		el.ID = uuid.NewString()
	}
	el.SessionID = c.board.SessionID()
	el.CreatorID = c.user.UserID
	el.IsVisible = true
	el.IsLocked = false
	el.Version = 0
	el.ApplyDefaults()
	el.CreatedAt = now
	el.LastModified = now

	c.board.mu.Lock()
	c.board.putElement(el)
	c.board.mu.Unlock()

	c.emit(protocol.ActionAdd, el)
	c.write(ctx, el.ID, func(ctx context.Context) (*model.CanvasElement, error) {
		return c.api.CreateElement(ctx, el.SessionID, el)
	})
	return el.Clone(), nil
}

// Drag moves an element locally and tells peers. Nothing is persisted until
// the gesture ends with Move.
func (c *Canvas) Drag(id string, pos model.Point) error {
	if _, err := c.board.mutate(id, func(e *model.CanvasElement) { e.Position = pos }); err != nil {
		return err
	}
	c.emit(protocol.ActionDrag, protocol.DragPayload{ID: id, Position: pos})
	return nil
}

// Move ends a drag at pos
func (c *Canvas) Move(ctx context.Context, id string, pos model.Point) error {
	return c.patch(ctx, id, model.ElementPatch{Position: &pos})
}

// Resize sets the element size
func (c *Canvas) Resize(ctx context.Context, id string, size model.Size) error {
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("%w: size must be positive", ErrValidation)
	}
	return c.patch(ctx, id, model.ElementPatch{Size: &size})
}

// Recolor changes the background color
func (c *Canvas) Recolor(ctx context.Context, id, color string) error {
	el, ok := c.board.Element(id)
	if !ok {
		return ErrNotFound
	}
	content := el.Content
	content.BackgroundColor = color
	return c.patch(ctx, id, model.ElementPatch{Content: &content})
}

// EditText replaces the element text
func (c *Canvas) EditText(ctx context.Context, id, text string) error {
	el, ok := c.board.Element(id)
	if !ok {
		return ErrNotFound
	}
	content := el.Content
	content.Text = text
	return c.patch(ctx, id, model.ElementPatch{Content: &content})
}

// Delete removes one element
func (c *Canvas) Delete(ctx context.Context, id string) error {
	if err := c.board.checkWritable(); err != nil {
		return err
	}
	c.board.mu.Lock()
	i := c.board.elementIndex(id)
	switch {
	case i < 0:
		c.board.mu.Unlock()
		return ErrNotFound
	case c.board.elements[i].IsLocked:
		c.board.mu.Unlock()
		return ErrLocked
	}
	c.board.removeElement(id)
	c.board.mu.Unlock()

	c.emit(protocol.ActionDelete, protocol.IDPayload{ID: id})
	c.write(ctx, id, func(ctx context.Context) (*model.CanvasElement, error) {
		return nil, c.api.DeleteElement(ctx, c.board.SessionID(), id)
	})
	return nil
}

// DeleteAll clears the canvas
func (c *Canvas) DeleteAll(ctx context.Context) error {
	if err := c.board.checkWritable(); err != nil {
		return err
	}
	c.board.mu.Lock()
	c.board.elements = nil
	c.board.mu.Unlock()

	c.emit(protocol.ActionDeleteAll, nil)
	c.write(ctx, "", func(ctx context.Context) (*model.CanvasElement, error) {
		return nil, c.api.DeleteAllElements(ctx, c.board.SessionID())
	})
	return nil
}

// Vote casts the caller's vote. Voting the other way replaces the old vote.
func (c *Canvas) Vote(ctx context.Context, id string, kind model.VoteType) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: vote type must be upvote or downvote", ErrValidation)
	}
	now := c.board.clock.Now().UTC()
	el, err := c.board.mutate(id, func(e *model.CanvasElement) { e.Votes.Cast(c.user.UserID, kind, now) })
	if err != nil {
		return err
	}
	c.emit(protocol.ActionUpdate, el)
	c.write(ctx, id, func(ctx context.Context) (*model.CanvasElement, error) {
		return c.api.VoteElement(ctx, c.board.SessionID(), id, kind)
	})
	return nil
}

// AssignZone places the element in a priority zone, nil clears it
func (c *Canvas) AssignZone(ctx context.Context, id string, zone *model.ZoneKind) error {
	if zone != nil && !zone.Valid() {
		return fmt.Errorf("%w: unknown zone %q", ErrValidation, *zone)
	}
	el, err := c.board.mutate(id, func(e *model.CanvasElement) {
		if zone == nil {
			e.PriorityZone = nil
			return
		}
		z := *zone
		e.PriorityZone = &z
	})
	if err != nil {
		return err
	}
	c.emit(protocol.ActionUpdate, el)
	c.write(ctx, id, func(ctx context.Context) (*model.CanvasElement, error) {
		return c.api.AssignZone(ctx, c.board.SessionID(), id, zone)
	})
	return nil
}

// Pan shifts the viewport
func (c *Canvas) Pan(dx, dy float64) Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Offset.X += dx
	c.view.Offset.Y += dy
	return c.view
}

// Zoom multiplies the zoom level, clamped to [MinZoom, MaxZoom]
func (c *Canvas) Zoom(factor float64) Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	if factor > 0 {
		c.view.Zoom = math.Min(MaxZoom, math.Max(MinZoom, c.view.Zoom*factor))
	}
	return c.view
}

// Viewport returns the current pan and zoom
func (c *Canvas) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Wait blocks until every background write has finished
func (c *Canvas) Wait() {
	c.writes.Wait()
}

func (c *Canvas) patch(ctx context.Context, id string, p model.ElementPatch) error {
	el, err := c.board.mutate(id, func(e *model.CanvasElement) { e.Apply(p) })
	if err != nil {
		return err
	}
	c.emit(protocol.ActionUpdate, el)
	c.write(ctx, id, func(ctx context.Context) (*model.CanvasElement, error) {
		return c.api.UpdateElement(ctx, c.board.SessionID(), id, p)
	})
	return nil
}

func (c *Canvas) emit(action string, payload any) {
	ev, err := protocol.NewEvent(protocol.KindCanvas, action, c.board.SessionID(), payload)
	if err != nil {
		c.log.Error().Err(err).Str("action", action).Msg("encode canvas event")
		return
	}
	// peers catch up on the next poll when the socket is down
	if err := c.ch.Emit(ev); err != nil {
		c.log.Debug().Err(err).Str("action", action).Msg("broadcast skipped")
	}
}

// write runs the durable request in the background. The element stays
// unsynced until it succeeds; a failure keeps the mark until the next poll.
func (c *Canvas) write(ctx context.Context, id string, fn func(context.Context) (*model.CanvasElement, error)) {
	c.board.begin(id)
	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		saved, err := fn(ctx)
		if err != nil {
			c.log.Warn().Err(err).Str("element", id).Msg("canvas write failed")
		}
		c.board.settle(id, saved, err)
	}()
}

// Board hooks used by Canvas

func (b *Board) checkWritable() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state != StateJoined || !b.canWrite {
		return ErrAccessDenied
	}
	if b.board.Locked && !b.facilitate {
		return ErrLocked
	}
	return nil
}

// mutate edits a cached element in place after the lock checks
func (b *Board) mutate(id string, fn func(*model.CanvasElement)) (model.CanvasElement, error) {
	if err := b.checkWritable(); err != nil {
		return model.CanvasElement{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.elementIndex(id)
	if i < 0 {
		return model.CanvasElement{}, ErrNotFound
	}
	if b.elements[i].IsLocked {
		return model.CanvasElement{}, ErrLocked
	}
	fn(&b.elements[i])
	return b.elements[i].Clone(), nil
}

func (b *Board) begin(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[id]++
	delete(b.failed, id)
}

func (b *Board) settle(id string, saved *model.CanvasElement, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[id]--; b.pending[id] <= 0 {
		delete(b.pending, id)
	}
	if err != nil {
		b.failed[id] = true
		return
	}
	// only the last write in a burst carries the final state
	if saved != nil && b.pending[id] == 0 && b.elementIndex(saved.ID) >= 0 {
		b.putElement(*saved)
	}
}
