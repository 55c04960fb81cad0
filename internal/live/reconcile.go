package live

// Changes lists the ids that differ from the previous delivery, in delivery order.
type Changes struct {
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
}

func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// Reconciler remembers the last full set it saw, keyed by id, and diffs each new set against it.
// It is not safe for concurrent use.
type Reconciler[T comparable] struct {
	key   func(T) string
	order []string
	items map[string]T
}

func NewReconciler[T comparable](key func(T) string) *Reconciler[T] {
	return &Reconciler[T]{key: key, items: make(map[string]T)}
}

// Apply replaces the remembered set with items and returns what changed.
func (r *Reconciler[T]) Apply(items []T) Changes {
	changes := Changes{Added: []string{}, Updated: []string{}, Removed: []string{}}

	next := make(map[string]T, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		id := r.key(item)
		if _, dup := next[id]; !dup {
			order = append(order, id)
		}
		next[id] = item

		prev, seen := r.items[id]
		switch {
		case !seen:
			changes.Added = append(changes.Added, id)
		case prev != item:
			changes.Updated = append(changes.Updated, id)
		}
	}
	for _, id := range r.order {
		if _, ok := next[id]; !ok {
			changes.Removed = append(changes.Removed, id)
		}
	}

	r.items = next
	r.order = order
	return changes
}

// Items returns the remembered set in delivery order.
func (r *Reconciler[T]) Items() []T {
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}
