package cachestore

// Status is the outcome of a cache read. Only Hit carries a value; the
// others say why there is none.
type Status int

const (
	Absent Status = iota
	Hit
	Expired
	Corrupt
	Unavailable
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Absent:
		return "absent"
	case Expired:
		return "expired"
	case Corrupt:
		return "corrupt"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// OK reports whether the read produced a usable value.
func (s Status) OK() bool {
	return s == Hit
}
