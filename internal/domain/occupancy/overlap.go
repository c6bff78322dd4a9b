package occupancy

import (
	"fmt"
	"strings"
	"time"

	"rentcal/internal/domain/shared/daterange"
)

// FindOverlaps returns the members of existing whose span shares at least one
// calendar day with candidate, in input order. The occupancy with id exclude
// is skipped so that an edited stay is never reported against itself.
//
// Bounds are inclusive: a stay ending on the 10th overlaps one starting on the
// 10th. Status is not inspected; callers drop cancelled stays beforehand.
func FindOverlaps(candidate daterange.DateRange, existing []*Occupancy, exclude ID) []*Occupancy {
	if !candidate.Valid() {
		return nil
	}
	var out []*Occupancy
	for _, o := range existing {
		if o == nil {
			continue
		}
		if exclude != "" && o.ID == exclude {
			continue
		}
		if o.Span.Overlaps(candidate) {
			out = append(out, o)
		}
	}
	return out
}

// BlockingOnly filters out cancelled occupancies.
func BlockingOnly(items []*Occupancy) []*Occupancy {
	out := make([]*Occupancy, 0, len(items))
	for _, o := range items {
		if o != nil && o.Blocking() {
			out = append(out, o)
		}
	}
	return out
}

// OverlapMessage describes overlaps for display, one clause per stay.
func OverlapMessage(overlaps []*Occupancy) string {
	if len(overlaps) == 0 {
		return ""
	}
	var b strings.Builder
	verb := "overlap"
	if len(overlaps) == 1 {
		verb = "overlaps"
	}
	fmt.Fprintf(&b, "%d existing %s %s the selected dates: ", len(overlaps), noun(overlaps), verb)
	for i, o := range overlaps {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "tenant %s, dates %s to %s, status %s",
			o.TenantName,
			o.Span.Start.Format(time.DateOnly),
			o.Span.End.Format(time.DateOnly),
			o.Status,
		)
	}
	return b.String()
}

func noun(overlaps []*Occupancy) string {
	word := "reservation"
	for _, o := range overlaps {
		if o.Kind == KindLease {
			word = "lease"
			break
		}
	}
	if len(overlaps) == 1 {
		return word
	}
	return word + "s"
}
