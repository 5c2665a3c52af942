package decision

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a decision against the response contract before it
// leaves the gateway. A failure here is a programming defect, not a
// caller error.
func (d *Decision) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("decision contract violation: %w", err)
	}
	switch d.Destination.Type {
	case DestinationTriage:
		if d.Destination.ID != "" {
			return fmt.Errorf("decision contract violation: triage destination must not carry an id")
		}
	case DestinationQueue, DestinationUser:
		if d.Destination.ID == "" {
			return fmt.Errorf("decision contract violation: %s destination requires an id", d.Destination.Type)
		}
	default:
		return fmt.Errorf("decision contract violation: invalid destination type %q", d.Destination.Type)
	}
	if d.Intent == IntentUnknown && d.Destination.Type != DestinationTriage {
		return fmt.Errorf("decision contract violation: unknown intent must route to triage")
	}
	return nil
}
