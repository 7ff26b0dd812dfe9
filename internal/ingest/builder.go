package ingest

import (
	"github.com/david/eventfeed/internal/models"
)

const (
	DefaultName          = "未命名活动"
	DefaultArea          = "广州"
	DefaultOpenHoursHint = "以官方公告/对应活动页面为准"

	AreaMaxRunes  = 40
	NotesMaxRunes = 200
	NameMaxRunes  = 80
)

// Partial is a sparse set of item fields. The zero value of a field means
// "unspecified"; fit maps use pointers so that an explicit all-false map
// can still be expressed. Registry priors are decoded straight into it.
type Partial struct {
	Type               models.ItemType    `yaml:"type"`
	Name               string             `yaml:"name"`
	Area               string             `yaml:"area"`
	Date               string             `yaml:"date"`
	TimeHint           string             `yaml:"timeHint"`
	Cost               models.Level       `yaml:"cost"`
	Reservation        models.Reservation `yaml:"reservation"`
	Tags               []string           `yaml:"tags"`
	TransitEase        int                `yaml:"transitEase"`
	TransferComplexity int                `yaml:"transferComplexity"`
	TimeMin            int                `yaml:"timeMin"`
	Intensity          models.Level       `yaml:"intensity"`
	CrowdRisk          int                `yaml:"crowdRisk"`
	Checkin            int                `yaml:"checkin"`
	WeatherFit         *models.WeatherFit `yaml:"weatherFit"`
	SeasonFit          *models.SeasonFit  `yaml:"seasonFit"`
	Mosquito           int                `yaml:"mosquito"`
	ToiletSupply       int                `yaml:"toiletSupply"`
	Lighting           int                `yaml:"lighting"`
	OpenHoursHint      string             `yaml:"openHoursHint"`
	Notes              string             `yaml:"notes"`
	Link               string             `yaml:"link"`
	Source             string             `yaml:"source"`
}

// DefaultItem returns the item every unspecified field falls back to.
func DefaultItem() models.Item {
	return models.Item{
		Type:               models.ItemTypeEvent,
		Name:               DefaultName,
		Area:               DefaultArea,
		Cost:               models.LevelMid,
		Reservation:        models.ReservationMaybe,
		Tags:               []string{},
		TransitEase:        3,
		TransferComplexity: 3,
		TimeMin:            80,
		Intensity:          models.LevelLow,
		CrowdRisk:          3,
		Checkin:            2,
		WeatherFit:         models.WeatherFit{Rain: true, Sun: true, Cold: true},
		SeasonFit:          models.SeasonFit{Spring: true, Summer: true, Autumn: true, Winter: true},
		Mosquito:           1,
		ToiletSupply:       3,
		Lighting:           4,
		OpenHoursHint:      DefaultOpenHoursHint,
	}
}

// BuildItem overlays layers left to right (later layers win) on top of the
// defaults and returns a complete, normalized item. It never fails: values
// that are out of range or not a known enum are treated as unspecified.
func BuildItem(layers ...Partial) models.Item {
	it := DefaultItem()
	for _, p := range layers {
		overlay(&it, p)
	}

	it.Name = TruncateRunes(StripMarkup(it.Name), NameMaxRunes)
	if it.Name == "" {
		it.Name = DefaultName
	}
	it.Area = TruncateRunes(NormalizeSpace(it.Area), AreaMaxRunes)
	if it.Area == "" {
		it.Area = DefaultArea
	}
	it.Date = NormalizeSpace(it.Date)
	it.TimeHint = NormalizeSpace(it.TimeHint)
	it.OpenHoursHint = NormalizeSpace(it.OpenHoursHint)
	it.Notes = TruncateRunes(StripMarkup(it.Notes), NotesMaxRunes)
	it.Link = NormalizeSpace(it.Link)
	it.Source = NormalizeSpace(it.Source)

	tags := make([]string, 0, len(it.Tags))
	for _, t := range it.Tags {
		if t = NormalizeSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	it.Tags = tags
	return it
}

func overlay(it *models.Item, p Partial) {
	if p.Type == models.ItemTypeEvent {
		it.Type = p.Type
	}
	setString(&it.Name, p.Name)
	setString(&it.Area, p.Area)
	setString(&it.Date, p.Date)
	setString(&it.TimeHint, p.TimeHint)
	if p.Cost.Valid() {
		it.Cost = p.Cost
	}
	if p.Reservation.Valid() {
		it.Reservation = p.Reservation
	}
	if p.Tags != nil {
		it.Tags = append([]string(nil), p.Tags...)
	}
	setRating(&it.TransitEase, p.TransitEase)
	setRating(&it.TransferComplexity, p.TransferComplexity)
	if p.TimeMin > 0 {
		it.TimeMin = p.TimeMin
	}
	if p.Intensity.Valid() {
		it.Intensity = p.Intensity
	}
	setRating(&it.CrowdRisk, p.CrowdRisk)
	setRating(&it.Checkin, p.Checkin)
	if p.WeatherFit != nil {
		it.WeatherFit = *p.WeatherFit
	}
	if p.SeasonFit != nil {
		it.SeasonFit = *p.SeasonFit
	}
	setRating(&it.Mosquito, p.Mosquito)
	setRating(&it.ToiletSupply, p.ToiletSupply)
	setRating(&it.Lighting, p.Lighting)
	setString(&it.OpenHoursHint, p.OpenHoursHint)
	setString(&it.Notes, p.Notes)
	setString(&it.Link, p.Link)
	setString(&it.Source, p.Source)
}

func setString(dst *string, v string) {
	if NormalizeSpace(v) != "" {
		*dst = v
	}
}

func setRating(dst *int, v int) {
	if v >= 1 && v <= 5 {
		*dst = v
	}
}

// withTags returns base followed by extra in evidence order. Blank tags are
// dropped; repeats are kept.
func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	for _, t := range append(base[:len(base):len(base)], extra...) {
		if t = NormalizeSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
