package model

// Kind selects the metric weighting of a competition round.
type Kind string

// Competition kinds in their fixed rotation order.
const (
	KindAccuracy Kind = "accuracy"
	KindQuality  Kind = "quality"
	KindSEO      Kind = "seo"
)

// Kinds returns the rotation order. Index i is used by every session s with s mod 3 == i.
func Kinds() []Kind {
	return []Kind{KindAccuracy, KindQuality, KindSEO}
}

// KindForSession returns the competition kind of a session.
func KindForSession(session uint64) Kind {
	kinds := Kinds()
	return kinds[session%uint64(len(kinds))]
}

// Valid reports whether k is one of the rotation kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAccuracy, KindQuality, KindSEO:
		return true
	default:
		return false
	}
}
