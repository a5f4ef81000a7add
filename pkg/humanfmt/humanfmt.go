// Package humanfmt renders byte counts, object counts, durations, and
// dollar amounts the way the report's log lines and email summaries
// present them.
package humanfmt

import (
	"fmt"
	"strconv"
	"time"
)

var byteUnits = []struct {
	div  float64
	name string
}{
	{1 << 40, "TiB"},
	{1 << 30, "GiB"},
	{1 << 20, "MiB"},
	{1 << 10, "KiB"},
}

func scaledBytes(f float64, suffix string) string {
	for _, u := range byteUnits {
		if f >= u.div {
			return fmt.Sprintf("%.2f %s%s", f/u.div, u.name, suffix)
		}
	}
	return fmt.Sprintf("%.0f B%s", f, suffix)
}

// Bytes renders a byte count in binary units, e.g. "1.50 GiB".
func Bytes(n uint64) string {
	return scaledBytes(float64(n), "")
}

// GB renders a byte count in the report's native unit, binary
// gigabytes, always with two decimals: "0.25 GB".
func GB(n uint64) string {
	return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
}

// Rate renders bytes moved over elapsed as "1.20 MiB/s". A non-positive
// elapsed has no meaningful rate and renders as "n/a".
func Rate(bytes uint64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "n/a"
	}
	return scaledBytes(float64(bytes)/elapsed.Seconds(), "/s")
}

// Count renders an object count with a K/M/B suffix, e.g. "12.35M".
// Counts below one thousand render as plain digits.
func Count(n uint64) string {
	const (
		thousand = 1e3
		million  = 1e6
		billion  = 1e9
	)
	f := float64(n)
	switch {
	case f >= billion:
		return fmt.Sprintf("%.2fB", f/billion)
	case f >= million:
		return fmt.Sprintf("%.2fM", f/million)
	case f >= thousand:
		return fmt.Sprintf("%.2fK", f/thousand)
	default:
		return strconv.FormatUint(n, 10)
	}
}

// Duration renders an elapsed time at the precision a scan log wants:
// whole milliseconds below a second, one decimal of seconds below a
// minute, and minute/hour forms above that.
func Duration(d time.Duration) string {
	if d < 0 {
		return d.String()
	}
	switch {
	case d >= time.Hour:
		h := d / time.Hour
		m := (d % time.Hour) / time.Minute
		return fmt.Sprintf("%dh%02dm", h, m)
	case d >= time.Minute:
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		return fmt.Sprintf("%dm%02ds", m, s)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.String()
	}
}

// USD renders a dollar amount to the cent, e.g. "$12.30".
func USD(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
