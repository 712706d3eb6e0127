package router

import "container/list"

type routeKey struct {
	profile int
	origin  int
	dest    int
}

type cacheEntry struct {
	key  routeKey
	path []int
	cost float64
}

// routeCache memoizes routing results by (profile, origin, destination) with
// LRU eviction once the bound is reached.
type routeCache struct {
	capacity int
	order    *list.List
	items    map[routeKey]*list.Element
}

func newRouteCache(capacity int) *routeCache {
	return &routeCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[routeKey]*list.Element, capacity),
	}
}

func (c *routeCache) get(key routeKey) ([]int, float64, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, 0, false
	}
	c.order.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	return entry.path, entry.cost, true
}

func (c *routeCache) put(key routeKey, path []int, cost float64) {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		entry := el.Value.(*cacheEntry)
		entry.path, entry.cost = path, cost
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, path: path, cost: cost})
}

func (c *routeCache) len() int { return c.order.Len() }
