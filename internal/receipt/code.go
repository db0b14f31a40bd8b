package receipt

import (
	"fmt"
	"strings"

	"github.com/aretw0/splitbill/pkg/ports"
)

// RequiredFields must all be present in a receipt code.
var RequiredFields = []string{"t", "s", "fn", "i", "fp"}

// Code is a parsed receipt QR payload.
type Code struct {
	Raw    string
	Fields map[string]string
}

// ParseCode splits raw into key=value pairs separated by '&'.
// Parts without '=' are ignored; values are kept verbatim.
func ParseCode(raw string) (Code, error) {
	raw = strings.TrimSpace(raw)
	c := Code{Raw: raw, Fields: map[string]string{}}
	for _, part := range strings.Split(raw, "&") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		c.Fields[key] = value
	}

	var missing []string
	for _, f := range RequiredFields {
		if _, ok := c.Fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: missing %s", ports.ErrInvalidCode, strings.Join(missing, ", "))
	}
	return c, nil
}

// Sum returns the receipt total as written in the code.
func (c Code) Sum() string { return c.Fields["s"] }
