package models

// Center is one of the charity's fixed neighborhood centers.
// Unrecognized input keeps its cleaned raw text, so a Center may hold a
// value outside KnownCenters; use Known to tell them apart.
type Center string

const (
	CenterCalleBelen    Center = "Calle Belén"
	CenterNudoANudo     Center = "Nudo a Nudo"
	CenterCasaMaranatha Center = "Casa Maranatha"
)

// KnownCenters lists the canonical centers in display order
var KnownCenters = []Center{
	CenterNudoANudo,
	CenterCasaMaranatha,
	CenterCalleBelen,
}

// Known reports whether c is one of the canonical centers
func (c Center) Known() bool {
	for _, k := range KnownCenters {
		if c == k {
			return true
		}
	}
	return false
}

func (c Center) String() string {
	return string(c)
}

// GeneralSpace is the space sentinel for centers that log a single
// aggregate per day.
const GeneralSpace = "General"

// Frequency is how often a person attends a center
type Frequency string

const (
	FrequencyUnset         Frequency = ""
	FrequencyDaily         Frequency = "Diaria"
	FrequencyWeekly        Frequency = "Semanal"
	FrequencyMonthly       Frequency = "Mensual"
	FrequencyDoesNotAttend Frequency = "No asiste"
)

// ValidFrequencies defines the frequency labels offered for manual entry
var ValidFrequencies = map[Frequency]bool{
	FrequencyDaily:         true,
	FrequencyWeekly:        true,
	FrequencyMonthly:       true,
	FrequencyDoesNotAttend: true,
}

// DayType qualifies the kind of day an attendance record describes
type DayType string

const (
	DayTypeRegular DayType = "Regular"
	DayTypeSpecial DayType = "Especial"
	DayTypeClosed  DayType = "Cerrado"
)
