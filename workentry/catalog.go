package workentry

// =============================================================================
// CATALOG - Work-entry types known to one run
// =============================================================================

// Catalog indexes the host's work-entry types together with the bypass
// codes and default types of a run.
type Catalog struct {
	types             map[WorkEntryTypeID]WorkEntryType
	bypass            map[string]bool
	DefaultAttendance WorkEntryTypeID
	DefaultLeave      WorkEntryTypeID
}

// NewCatalog builds a catalog. A type is a bypass type when its IsBypass
// flag is set or its code is listed in bypassCodes.
func NewCatalog(types []WorkEntryType, bypassCodes []string, defaultAttendance, defaultLeave WorkEntryTypeID) *Catalog {
	c := &Catalog{
		types:             make(map[WorkEntryTypeID]WorkEntryType, len(types)),
		bypass:            make(map[string]bool, len(bypassCodes)),
		DefaultAttendance: defaultAttendance,
		DefaultLeave:      defaultLeave,
	}
	for _, t := range types {
		c.types[t.ID] = t
	}
	for _, code := range bypassCodes {
		c.bypass[code] = true
	}
	return c
}

func (c *Catalog) Type(id WorkEntryTypeID) (WorkEntryType, bool) {
	t, ok := c.types[id]
	return t, ok
}

// Known reports whether id names a type of the catalog.
func (c *Catalog) Known(id WorkEntryTypeID) bool {
	_, ok := c.types[id]
	return ok
}

func (c *Catalog) IsBypass(id WorkEntryTypeID) bool {
	t, ok := c.types[id]
	return ok && (t.IsBypass || c.bypass[t.Code])
}

// IsAbsence reports whether rows of this type count as absence. Unknown
// types count as worked.
func (c *Catalog) IsAbsence(id WorkEntryTypeID) bool {
	t, ok := c.types[id]
	return ok && t.IsAbsence()
}
