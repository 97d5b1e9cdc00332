package relay

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickMember
	DropFrame
)

type Policy interface {
	OnBackPressure(g *Group, member ClientID) BackpressureAction
}

// SimplePolicy kicks a member whose send queue stays full; a slow
// consumer must not stall the whole group.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(g *Group, member ClientID) BackpressureAction {
	return KickMember
}
