package models

// ItemType is the kind of listing an Item describes.
type ItemType string

const ItemTypeEvent ItemType = "event"

// Level is a three-step scale used for cost and physical intensity.
type Level string

const (
	LevelLow  Level = "low"
	LevelMid  Level = "mid"
	LevelHigh Level = "high"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	return l == LevelLow || l == LevelMid || l == LevelHigh
}

// Reservation says whether an event needs booking ahead.
type Reservation string

const (
	ReservationYes   Reservation = "yes"
	ReservationNo    Reservation = "no"
	ReservationMaybe Reservation = "maybe"
)

func (r Reservation) Valid() bool {
	return r == ReservationYes || r == ReservationNo || r == ReservationMaybe
}

// WeatherFit marks which weather an event is still enjoyable in.
type WeatherFit struct {
	Rain bool `json:"rain" yaml:"rain"`
	Sun  bool `json:"sun" yaml:"sun"`
	Cold bool `json:"cold" yaml:"cold"`
}

// SeasonFit marks the seasons an event suits.
type SeasonFit struct {
	Spring bool `json:"spring" yaml:"spring"`
	Summer bool `json:"summer" yaml:"summer"`
	Autumn bool `json:"autumn" yaml:"autumn"`
	Winter bool `json:"winter" yaml:"winter"`
}

// Item is the canonical event record emitted by every source.
// Ratings (transitEase, crowdRisk, ...) are source-level priors on a 1-5 scale,
// not values computed from the listing text.
type Item struct {
	Type               ItemType    `json:"type"`
	Name               string      `json:"name"`
	Area               string      `json:"area"`
	Date               string      `json:"date"`
	TimeHint           string      `json:"timeHint"`
	Cost               Level       `json:"cost"`
	Reservation        Reservation `json:"reservation"`
	Tags               []string    `json:"tags"`
	TransitEase        int         `json:"transitEase"`
	TransferComplexity int         `json:"transferComplexity"`
	TimeMin            int         `json:"timeMin"`
	Intensity          Level       `json:"intensity"`
	CrowdRisk          int         `json:"crowdRisk"`
	Checkin            int         `json:"checkin"`
	WeatherFit         WeatherFit  `json:"weatherFit"`
	SeasonFit          SeasonFit   `json:"seasonFit"`
	Mosquito           int         `json:"mosquito"`
	ToiletSupply       int         `json:"toiletSupply"`
	Lighting           int         `json:"lighting"`
	OpenHoursHint      string      `json:"openHoursHint"`
	Notes              string      `json:"notes"`
	Link               string      `json:"link"`
	Source             string      `json:"source"`
}

// Key is the dedup identity of an item.
type Key struct {
	Name string
	Link string
}

func (it Item) Key() Key {
	return Key{Name: it.Name, Link: it.Link}
}

// HasTag reports whether tag appears in the item's tags.
func (it Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Meta describes one generated dataset.
type Meta struct {
	GeneratedAt string   `json:"generatedAt"`
	Sources     []string `json:"sources"`
	Notes       string   `json:"notes"`
}

// Dataset is the document written at the end of a run.
type Dataset struct {
	Items []Item `json:"items"`
	Meta  Meta   `json:"meta"`
}
