package axiom

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/j-sauer/axiom-go/model"
)

// FormatMaxDuration formats d the way the trim endpoint expects it: the total
// hours and the minutes are only written when not zero, the seconds always,
// e.g. "26h1m5s", "1m30s", "1h0s" or "45s". Sub-second precision is dropped.
func FormatMaxDuration(d time.Duration) (string, error) {
	if d < 0 {
		return "", fmt.Errorf("%w: %s is negative", model.ErrInvalidDuration, d)
	}
	hours := int64(d / time.Hour)
	minutes := int64(d % time.Hour / time.Minute)
	seconds := int64(d % time.Minute / time.Second)

	var sb strings.Builder
	if hours > 0 {
		sb.WriteString(strconv.FormatInt(hours, 10))
		sb.WriteString("h")
	}
	if minutes > 0 {
		sb.WriteString(strconv.FormatInt(minutes, 10))
		sb.WriteString("m")
	}
	sb.WriteString(strconv.FormatInt(seconds, 10))
	sb.WriteString("s")
	return sb.String(), nil
}
