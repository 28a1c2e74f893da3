package drafts

// Option configures Define, Fetch, and related focus changes.
type Option func(*options)

type options struct {
	aux         any
	hasAux      bool
	previous    string
	hasPrevious bool
	parent      string
	context     string
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithAuxiliary attaches companion data (such as the last HTTP response of
// a request) to the focused draft. It never affects dirtiness.
func WithAuxiliary[A any](a *A) Option {
	return func(o *options) {
		o.aux = a
		o.hasAux = true
	}
}

// WithPrevious names the entity that was focused before this change. When
// it differs from the new entity and its parked draft is clean, the draft is
// removed from the cache. Defaults to the currently focused entity.
func WithPrevious(id string) Option {
	return func(o *options) {
		o.previous = id
		o.hasPrevious = true
	}
}

// WithParent sets the container (e.g. collection) of the entity.
func WithParent(id string) Option {
	return func(o *options) {
		o.parent = id
	}
}

// WithContext sets the shared variable context of the entity.
func WithContext(id string) Option {
	return func(o *options) {
		o.context = id
	}
}
