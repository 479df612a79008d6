package paginate

//go:generate go tool go-enum --names --marshal

// Paginator lifecycle status.
// ENUM(idle, loading, settling-layout, ready)
type Status int

// busy is true while navigation requests have to be deferred.
func (x Status) busy() bool {
	return x == StatusLoading || x == StatusSettlingLayout
}
