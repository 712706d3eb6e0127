package network

// EdgeEvent is one entry of the per-edge enter/exit log.
type EdgeEvent struct {
	Time    float64
	Kind    string // "enter" or "exit"
	Cyclist int
}

const (
	EventEnter = "enter"
	EventExit  = "exit"
)

// Occupancy tracks, for every directed edge, the set of cyclists currently
// traversing it, plus the entry counters and the event log the statistics
// accumulator reports from. All mutation happens from the currently running
// continuation, so no locking.
type Occupancy struct {
	onEdge  []map[int]struct{}
	entries []int
	events  [][]EdgeEvent
	total   int
}

func NewOccupancy(numEdges int) *Occupancy {
	o := &Occupancy{
		onEdge:  make([]map[int]struct{}, numEdges),
		entries: make([]int, numEdges),
		events:  make([][]EdgeEvent, numEdges),
	}
	for i := range o.onEdge {
		o.onEdge[i] = make(map[int]struct{})
	}
	return o
}

// Enter inserts a cyclist into the occupancy set of edge e at time t.
func (o *Occupancy) Enter(e, cyclist int, t float64) {
	o.onEdge[e][cyclist] = struct{}{}
	o.entries[e]++
	o.total++
	o.events[e] = append(o.events[e], EdgeEvent{Time: t, Kind: EventEnter, Cyclist: cyclist})
}

// Exit removes a cyclist from the occupancy set of edge e at time t.
func (o *Occupancy) Exit(e, cyclist int, t float64) {
	if _, ok := o.onEdge[e][cyclist]; !ok {
		return
	}
	delete(o.onEdge[e], cyclist)
	o.total--
	o.events[e] = append(o.events[e], EdgeEvent{Time: t, Kind: EventExit, Cyclist: cyclist})
}

// Count returns the current occupancy of edge e.
func (o *Occupancy) Count(e int) int { return len(o.onEdge[e]) }

// Has reports whether the cyclist is currently on edge e.
func (o *Occupancy) Has(e, cyclist int) bool {
	_, ok := o.onEdge[e][cyclist]
	return ok
}

// Total is the number of cyclists currently on any edge.
func (o *Occupancy) Total() int { return o.total }

// Entries returns the cumulative entry count of edge e.
func (o *Occupancy) Entries(e int) int { return o.entries[e] }

// Events returns the enter/exit log of edge e in time order.
func (o *Occupancy) Events(e int) []EdgeEvent { return o.events[e] }
