// Package selection owns the block data model and the pointer interaction
// state machine that creates and mutates it.
package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ximiwu/Exocortex/pkg/geometry"
	"github.com/ximiwu/Exocortex/pkg/logger"
	"github.com/ximiwu/Exocortex/pkg/models"
)

var (
	// ErrInvalidRegion rejects a block whose clamped rect has no area.
	ErrInvalidRegion = errors.New("selection region has no area")
	// ErrNotFound reports a reference to a block id that is absent,
	// typically stale after a delete.
	ErrNotFound = errors.New("block not found")
	// ErrInvalidGroup rejects a malformed grouping request.
	ErrInvalidGroup = errors.New("invalid group request")
)

// EventKind identifies what changed in the store.
type EventKind int

const (
	EventCreated EventKind = iota
	EventToggled
	EventDeleted
	EventGrouped
	EventUngrouped
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventToggled:
		return "toggled"
	case EventDeleted:
		return "deleted"
	case EventGrouped:
		return "grouped"
	case EventUngrouped:
		return "ungrouped"
	default:
		return "unknown"
	}
}

// Event describes one store mutation. Events are emitted synchronously, in
// mutation order, with no batching; the view layer redraws overlays from
// them.
type Event struct {
	Kind     EventKind
	Block    models.Block // affected block, when the event concerns one
	GroupID  int          // set for group/ungroup events
	BlockIDs []int        // member ids for group/ungroup events
}

// Store is the authoritative model of all selection blocks in one session.
// It is confined to the session's owner goroutine; it performs no locking of
// its own.
type Store struct {
	log       *logger.Logger
	blocks    map[int]*models.Block
	order     []int         // creation order, also draw/z-order
	groups    map[int][]int // group id -> member ids in creation order
	nextID    int
	nextGroup int
	subs      []func(Event)
}

// NewStore returns an empty store.
func NewStore(log *logger.Logger) *Store {
	return &Store{
		log:       log,
		blocks:    make(map[int]*models.Block),
		groups:    make(map[int][]int),
		nextID:    1,
		nextGroup: 1,
	}
}

// Subscribe registers a change listener. Listeners are invoked synchronously
// in subscription order for every mutation.
func (s *Store) Subscribe(fn func(Event)) {
	s.subs = append(s.subs, fn)
}

func (s *Store) emit(ev Event) {
	for _, fn := range s.subs {
		fn(ev)
	}
}

// Create inserts a new enabled block. The rect must already be clamped to
// the page's document-space bounds by the caller; a rect without positive
// area is rejected with ErrInvalidRegion.
func (s *Store) Create(pageIndex int, rect geometry.Rect) (models.Block, error) {
	if rect.IsEmpty() {
		return models.Block{}, ErrInvalidRegion
	}
	block := &models.Block{
		ID:        s.nextID,
		PageIndex: pageIndex,
		Rect:      rect,
		Enabled:   true,
	}
	s.nextID++
	s.blocks[block.ID] = block
	s.order = append(s.order, block.ID)
	if s.log != nil {
		s.log.Debug("created block %d on page %d at (%.1f,%.1f) %gx%g",
			block.ID, pageIndex, rect.X, rect.Y, rect.Width, rect.Height)
	}
	s.emit(Event{Kind: EventCreated, Block: *block})
	return *block, nil
}

// Toggle flips a block's enabled flag and returns the updated block.
func (s *Store) Toggle(id int) (models.Block, error) {
	block, ok := s.blocks[id]
	if !ok {
		return models.Block{}, fmt.Errorf("toggle block %d: %w", id, ErrNotFound)
	}
	block.Enabled = !block.Enabled
	s.emit(Event{Kind: EventToggled, Block: *block})
	return *block, nil
}

// Delete removes a block and clears it from any group it belongs to.
func (s *Store) Delete(id int) error {
	block, ok := s.blocks[id]
	if !ok {
		return fmt.Errorf("delete block %d: %w", id, ErrNotFound)
	}
	if block.GroupID != 0 {
		s.removeFromGroup(block.GroupID, id)
	}
	deleted := *block
	delete(s.blocks, id)
	for i, bid := range s.order {
		if bid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.emit(Event{Kind: EventDeleted, Block: deleted})
	return nil
}

func (s *Store) removeFromGroup(groupID, id int) {
	members := s.groups[groupID]
	for i, bid := range members {
		if bid == id {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(s.groups, groupID)
	} else {
		s.groups[groupID] = members
	}
}

// Group assigns a fresh group id to the given blocks. Every id must exist
// and be ungrouped, and at least two blocks are required.
func (s *Store) Group(ids []int) (int, error) {
	if len(ids) < 2 {
		return 0, fmt.Errorf("need at least two blocks: %w", ErrInvalidGroup)
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		block, ok := s.blocks[id]
		if !ok {
			return 0, fmt.Errorf("block %d does not exist: %w", id, ErrInvalidGroup)
		}
		if block.GroupID != 0 {
			return 0, fmt.Errorf("block %d is already grouped: %w", id, ErrInvalidGroup)
		}
		if seen[id] {
			return 0, fmt.Errorf("block %d listed twice: %w", id, ErrInvalidGroup)
		}
		seen[id] = true
	}

	groupID := s.nextGroup
	s.nextGroup++
	members := append([]int(nil), ids...)
	// Group membership is kept in creation order regardless of how the
	// request listed the ids.
	sort.Ints(members)
	for _, id := range members {
		s.blocks[id].GroupID = groupID
	}
	s.groups[groupID] = members
	if s.log != nil {
		s.log.Debug("grouped blocks %v as group %d", members, groupID)
	}
	s.emit(Event{Kind: EventGrouped, GroupID: groupID, BlockIDs: append([]int(nil), members...)})
	return groupID, nil
}

// Ungroup clears group membership from all blocks in a group.
func (s *Store) Ungroup(groupID int) error {
	members, ok := s.groups[groupID]
	if !ok {
		return fmt.Errorf("group %d does not exist: %w", groupID, ErrNotFound)
	}
	for _, id := range members {
		s.blocks[id].GroupID = 0
	}
	delete(s.groups, groupID)
	s.emit(Event{Kind: EventUngrouped, GroupID: groupID, BlockIDs: append([]int(nil), members...)})
	return nil
}

// Get returns a copy of the block with the given id.
func (s *Store) Get(id int) (models.Block, bool) {
	block, ok := s.blocks[id]
	if !ok {
		return models.Block{}, false
	}
	return *block, true
}

// List returns copies of all blocks in creation order. A non-negative
// pageIndex filters to that page. Creation order is also the draw order:
// later blocks draw on top.
func (s *Store) List(pageIndex int) []models.Block {
	out := make([]models.Block, 0, len(s.order))
	for _, id := range s.order {
		block := s.blocks[id]
		if pageIndex >= 0 && block.PageIndex != pageIndex {
			continue
		}
		out = append(out, *block)
	}
	return out
}

// Len returns the number of blocks in the store.
func (s *Store) Len() int { return len(s.blocks) }

// Snapshot returns an immutable copy of the whole block set in creation
// order, for export workers to read without racing store mutations.
func (s *Store) Snapshot() []models.Block {
	return s.List(-1)
}

// GroupMembers returns copies of a group's member blocks in creation order.
func (s *Store) GroupMembers(groupID int) []models.Block {
	members := s.groups[groupID]
	out := make([]models.Block, 0, len(members))
	for _, id := range members {
		out = append(out, *s.blocks[id])
	}
	return out
}

// GroupIDs returns all group ids ordered by the creation order of each
// group's first member.
func (s *Store) GroupIDs() []int {
	seen := make(map[int]bool)
	var out []int
	for _, id := range s.order {
		gid := s.blocks[id].GroupID
		if gid != 0 && !seen[gid] {
			seen[gid] = true
			out = append(out, gid)
		}
	}
	return out
}

// HitTest returns the topmost block on a page containing the document-space
// point. Ties go to the most recently created block.
func (s *Store) HitTest(pageIndex int, p geometry.Point) (models.Block, bool) {
	for i := len(s.order) - 1; i >= 0; i-- {
		block := s.blocks[s.order[i]]
		if block.PageIndex == pageIndex && block.Rect.Contains(p) {
			return *block, true
		}
	}
	return models.Block{}, false
}

// Restore reinserts a block with its persisted id and group, used when
// loading a sidecar file. Ids must be unique; the id and group counters
// advance past restored values so fresh ids are never reused.
func (s *Store) Restore(block models.Block) error {
	if block.ID <= 0 {
		return fmt.Errorf("restore: invalid block id %d", block.ID)
	}
	if _, exists := s.blocks[block.ID]; exists {
		return fmt.Errorf("restore: duplicate block id %d", block.ID)
	}
	if block.Rect.IsEmpty() {
		return fmt.Errorf("restore block %d: %w", block.ID, ErrInvalidRegion)
	}
	b := block
	s.blocks[b.ID] = &b
	s.order = append(s.order, b.ID)
	if b.ID >= s.nextID {
		s.nextID = b.ID + 1
	}
	if b.GroupID != 0 {
		s.groups[b.GroupID] = append(s.groups[b.GroupID], b.ID)
		if b.GroupID >= s.nextGroup {
			s.nextGroup = b.GroupID + 1
		}
	}
	s.emit(Event{Kind: EventCreated, Block: b})
	return nil
}

// Clear removes every block without emitting per-block events. Used on
// session teardown and before replaying a sidecar file.
func (s *Store) Clear() {
	s.blocks = make(map[int]*models.Block)
	s.order = nil
	s.groups = make(map[int][]int)
	s.nextID = 1
	s.nextGroup = 1
}
