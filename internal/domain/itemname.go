package domain

import "strings"

// ItemName is the structured form of a market hash name such as
// "StatTrak™ AK-47 | Redline (Field-Tested)".
type ItemName struct {
	BaseName   string
	Skin       string
	Condition  string
	IsStatTrak bool
	IsSouvenir bool
}

const (
	statTrakPrefix = "StatTrak™ "
	souvenirPrefix = "Souvenir "
)

// ParseItemName splits a market hash name into its base name, skin, wear
// condition, and StatTrak/Souvenir flags. It returns ok=false for names that
// do not follow the "<weapon> | <skin> (<condition>)" convention.
func ParseItemName(marketName string) (ItemName, bool) {
	if !strings.Contains(marketName, " | ") {
		return ItemName{}, false
	}

	var n ItemName

	parts := strings.SplitN(marketName, " | ", 2)
	base := strings.TrimSpace(parts[0])

	if strings.HasPrefix(base, statTrakPrefix) {
		n.IsStatTrak = true
		base = strings.TrimPrefix(base, statTrakPrefix)
	}
	if strings.HasPrefix(base, souvenirPrefix) {
		n.IsSouvenir = true
		base = strings.TrimPrefix(base, souvenirPrefix)
	}
	n.BaseName = base

	rest := strings.TrimSpace(parts[1])
	if open := strings.LastIndex(rest, "("); open >= 0 {
		if close := strings.LastIndex(rest, ")"); close > open {
			n.Condition = strings.TrimSpace(rest[open+1 : close])
			rest = strings.TrimSpace(rest[:open])
		}
	}
	n.Skin = rest

	return n, true
}
