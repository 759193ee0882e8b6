package cpix

import (
	"fmt"

	"github.com/cpixkit/cpix/pkg/keyid"
	"github.com/cpixkit/cpix/pkg/pssh"
)

// Validate checks the document's internal references. Usage rules and DRM
// systems must reference a content key, DRM systems must name a known
// protection system and key period filters must reference a declared
// period. Delivery keys must be X.509 certificates. All problems are
// returned.
func (d *Document) Validate() []error {
	var errs []error
	add := func(err error) { errs = append(errs, newError("validate", err)) }

	for i, dd := range d.DeliveryData {
		if _, err := dd.Certificate(); err != nil {
			add(fmt.Errorf("delivery data %d: %w", i, err))
		}
		if len(dd.DocumentKey) == 0 {
			add(fmt.Errorf("%w: delivery data %d: empty document key", ErrInvalidDocument, i))
		}
	}

	keys := make(map[keyid.KeyID]bool, len(d.ContentKeys))
	for _, k := range d.ContentKeys {
		keys[k.KID] = true
		if len(k.CEK) != keyid.Size {
			add(fmt.Errorf("%w: content key %s is %d bytes", ErrInvalidDocument, k.KID, len(k.CEK)))
		}
	}

	periods := make(map[string]bool, len(d.Periods))
	for _, p := range d.Periods {
		periods[p.ID] = true
		if p.ID == "" {
			add(fmt.Errorf("%w: period without id", ErrInvalidDocument))
		}
		if p.Index != nil && (p.Start != nil || p.End != nil) {
			add(fmt.Errorf("%w: period %s: index is mutually exclusive with start and end", ErrInvalidDocument, p.ID))
		}
		if (p.Start == nil) != (p.End == nil) {
			add(fmt.Errorf("%w: period %s: start and end must be given together", ErrInvalidDocument, p.ID))
		}
	}

	for _, r := range d.UsageRules {
		if !keys[r.KID] {
			add(fmt.Errorf("usage rule %s %w", r.KID, ErrMissingContentKey))
		}
		for _, f := range r.Filters {
			if pf, ok := f.(KeyPeriodFilter); ok && !periods[pf.PeriodID] {
				add(fmt.Errorf("period filter %q %w", pf.PeriodID, ErrMissingPeriod))
			}
		}
	}

	for _, s := range d.DRMSystems {
		if !keys[s.KID] {
			add(fmt.Errorf("DRM system %s %w", s.KID, ErrMissingContentKey))
		}
		if !pssh.IsKnownSystem(s.SystemID) {
			add(fmt.Errorf("%w: %s", ErrUnknownSystemID, s.SystemID))
		}
	}
	return errs
}
