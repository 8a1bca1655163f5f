package porthub

// Channel selects one of the two sub-signals multiplexed onto a port.
type Channel uint8

const (
	ChannelA Channel = iota
	ChannelB
)

func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	default:
		return "?"
	}
}

// ParseChannel accepts "A"/"B" (either case). Empty selects ChannelA.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "", "A", "a":
		return ChannelA, nil
	case "B", "b":
		return ChannelB, nil
	default:
		return 0, ErrInvalidChannel
	}
}

// Family groups operations that share a channel layout.
type Family uint8

const (
	FamilyDigitalRead  Family = iota // 1-byte values, B at base+1
	FamilyDigitalWrite               // 2-byte values, B at base+2
	FamilyAnalogWrite                // 2-byte values, B at base+2
	familyCount
)

// channelOffset[family][channel] is added to the caller's base register.
var channelOffset = [familyCount][2]uint8{
	FamilyDigitalRead:  {0, 1},
	FamilyDigitalWrite: {0, 2},
	FamilyAnalogWrite:  {0, 2},
}

// Register returns the register addressed by channel c within family f,
// relative to base. The sum wraps modulo 256.
func (c Channel) Register(f Family, base uint8) (uint8, error) {
	if c > ChannelB || f >= familyCount {
		return 0, ErrInvalidChannel
	}
	return base + channelOffset[f][c], nil
}
