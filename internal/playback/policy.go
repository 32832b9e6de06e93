package playback

// PolicyChange identifies which policy flag changed.
type PolicyChange int

const (
	MuteChanged PolicyChange = iota
	CaptionsChanged
)

// Policy is the single source of truth for mute and caption intent. It starts
// muted so that the first play of a session satisfies autoplay rules.
type Policy struct {
	muted      bool
	captionsOn bool
	played     bool
	subs       []func(PolicyChange)
}

// NewPolicy creates a muted policy with the given caption default.
func NewPolicy(captionsOn bool) *Policy {
	return &Policy{muted: true, captionsOn: captionsOn}
}

// Muted reports the global mute flag.
func (p *Policy) Muted() bool {
	return p.muted
}

// CaptionsOn reports the global caption flag.
func (p *Policy) CaptionsOn() bool {
	return p.captionsOn
}

// Played reports whether any embed has accepted a play command yet.
func (p *Policy) Played() bool {
	return p.played
}

// SetMuted changes the mute flag and propagates it synchronously.
func (p *Policy) SetMuted(muted bool) {
	if p.muted == muted {
		return
	}
	p.muted = muted
	p.publish(MuteChanged)
}

// SetCaptionsOn changes the caption flag and propagates it synchronously.
func (p *Policy) SetCaptionsOn(on bool) {
	if p.captionsOn == on {
		return
	}
	p.captionsOn = on
	p.publish(CaptionsChanged)
}

// Subscribe registers fn to run after every change.
func (p *Policy) Subscribe(fn func(PolicyChange)) {
	p.subs = append(p.subs, fn)
}

func (p *Policy) notePlay() {
	p.played = true
}

func (p *Policy) publish(change PolicyChange) {
	for _, fn := range p.subs {
		fn(change)
	}
}
