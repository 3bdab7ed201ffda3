package carwash

import (
	"sort"

	apperrors "carwash/internal/errors"
)

// ServiceType is the stable numeric code of a catalog service. The codes are persisted.
type ServiceType int

const (
	Exterior ServiceType = iota
	Interior
	Carpet
	SpotCleaning
	VignetteRemoval
	Polishing
	AcPresent
	BugRemoval
	WheelCleaning
	TireCare
	LeatherCare
	PlasticCare
	PreWash
)

// Service is a catalog entry. Units is the wash-count weight of the service.
type Service struct {
	Type          ServiceType `json:"type"`
	Name          string      `json:"name"`
	TimeInMinutes int         `json:"time_in_minutes"`
	Price         int         `json:"price"`
	PriceMpv      int         `json:"price_mpv"`
	Hidden        bool        `json:"hidden"`
	Units         int         `json:"-"`
}

var catalog = []Service{
	{Type: Exterior, Name: "exterior", TimeInMinutes: 15, Price: 6311, PriceMpv: 8400, Units: 1},
	{Type: Interior, Name: "interior", TimeInMinutes: 15, Price: 1800, PriceMpv: 2100, Units: 1},
	{Type: Carpet, Name: "carpet", TimeInMinutes: 30, Price: 6890, PriceMpv: 8150, Units: 2},
	{Type: SpotCleaning, Name: "spot cleaning", TimeInMinutes: 10, Price: 3490, PriceMpv: 3490, Units: 1},
	{Type: VignetteRemoval, Name: "vignette removal", TimeInMinutes: 5, Price: 1000, PriceMpv: 1000, Units: 1},
	{Type: Polishing, Name: "polishing", TimeInMinutes: 15, Price: 5000, PriceMpv: 6000, Units: 1},
	{Type: AcPresent, Name: "AC cleaning 'a la Ozon'", TimeInMinutes: 5, Price: 3000, PriceMpv: 3000, Hidden: true, Units: 1},
	{Type: BugRemoval, Name: "bug removal", TimeInMinutes: 5, Price: 2000, PriceMpv: 2000, Hidden: true, Units: 1},
	{Type: WheelCleaning, Name: "wheel cleaning", TimeInMinutes: 10, Price: 1000, PriceMpv: 1000, Hidden: true, Units: 1},
	{Type: TireCare, Name: "tire care", TimeInMinutes: 5, Price: 800, PriceMpv: 800, Hidden: true, Units: 1},
	{Type: LeatherCare, Name: "leather care", TimeInMinutes: 10, Price: 8000, PriceMpv: 8000, Hidden: true, Units: 1},
	{Type: PlasticCare, Name: "plastic care", TimeInMinutes: 5, Price: 4000, PriceMpv: 4000, Hidden: true, Units: 1},
	{Type: PreWash, Name: "prewash", TimeInMinutes: 5, Price: 2000, PriceMpv: 2500, Hidden: true, Units: 1},
}

// Catalog returns a copy of the service table. Hidden services are only included when asked for.
func Catalog(includeHidden bool) []Service {
	out := make([]Service, 0, len(catalog))
	for _, s := range catalog {
		if s.Hidden && !includeHidden {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Lookup returns the catalog entry for t.
func Lookup(t ServiceType) (Service, bool) {
	if t < 0 || int(t) >= len(catalog) {
		return Service{}, false
	}
	return catalog[t], true
}

func (t ServiceType) String() string {
	if s, ok := Lookup(t); ok {
		return s.Name
	}
	return "unknown"
}

// NormalizeServices validates the codes and returns them as an ascending set.
func NormalizeServices(in []ServiceType) ([]ServiceType, error) {
	if len(in) == 0 {
		return nil, apperrors.ErrInvalidInput.Withf("at least one service is required")
	}
	seen := make(map[ServiceType]bool, len(in))
	out := make([]ServiceType, 0, len(in))
	for _, t := range in {
		if _, ok := Lookup(t); !ok {
			return nil, apperrors.ErrInvalidInput.Withf("unknown service type %d", int(t)).WithDetails("service", int(t))
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// TimeRequirement is the summed duration of the services in minutes.
func TimeRequirement(services []ServiceType) int {
	total := 0
	for _, t := range services {
		if s, ok := Lookup(t); ok {
			total += s.TimeInMinutes
		}
	}
	return total
}

// WashUnits is the wash-count weight of a service set: the heaviest service decides.
// A set containing Carpet costs 2, anything else costs 1.
func WashUnits(services []ServiceType) int {
	units := 0
	for _, t := range services {
		if s, ok := Lookup(t); ok && s.Units > units {
			units = s.Units
		}
	}
	return units
}

// Price sums the list price of the services, using the MPV column for large vehicles.
func Price(services []ServiceType, mpv bool) int {
	total := 0
	for _, t := range services {
		s, ok := Lookup(t)
		if !ok {
			continue
		}
		if mpv {
			total += s.PriceMpv
		} else {
			total += s.Price
		}
	}
	return total
}
