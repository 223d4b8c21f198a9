package enums

import "fmt"

// Channel is the sales surface a price is quoted for.
type Channel string

const (
	ChannelWholesale   Channel = "wholesale"
	ChannelRetail      Channel = "retail"
	ChannelEcommerce   Channel = "ecommerce"
	ChannelMarketplace Channel = "marketplace"
)

var validChannels = []Channel{
	ChannelWholesale,
	ChannelRetail,
	ChannelEcommerce,
	ChannelMarketplace,
}

// String implements fmt.Stringer.
func (v Channel) String() string {
	return string(v)
}

// IsValid reports whether the value is a known Channel.
func (v Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseChannel converts raw input into a Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}
