package model

type ItemType string

const (
	// ItemTypeChoice is a multiple-choice item: pick the option whose
	// quality is "good".
	ItemTypeChoice ItemType = "choice"
	// ItemTypeRating is a three-way rating item: rate the fit and match
	// the reference rating.
	ItemTypeRating ItemType = "rating"
)

// Option qualities for choice items.
const (
	QualityGood = "good"
	QualityBad  = "bad"
)

// Rating scale for rating items. Adjacent ratings count as partial answers.
const (
	RatingPoor   = 1
	RatingFair   = 2
	RatingStrong = 3
)

type ItemOption struct {
	ID      string `json:"id" bson:"id"`
	Text    string `json:"text" bson:"text"`
	Quality string `json:"quality" bson:"quality"`
}

// Item is a single scored practice task. Content authoring happens outside
// this service; items are read-only here.
type Item struct {
	ID            string       `json:"id" bson:"_id,omitempty"`
	Type          ItemType     `json:"type" bson:"type"`
	Category      string       `json:"category" bson:"category"`
	Prompt        string       `json:"prompt" bson:"prompt"`
	Options       []ItemOption `json:"options,omitempty" bson:"options,omitempty"`
	CorrectRating int          `json:"correctRating,omitempty" bson:"correctRating,omitempty"`
	TimeLimitMs   int          `json:"timeLimitMs" bson:"timeLimitMs"`
}

// OptionByID returns the option with the given id, or nil.
func (i *Item) OptionByID(id string) *ItemOption {
	for idx := range i.Options {
		if i.Options[idx].ID == id {
			return &i.Options[idx]
		}
	}
	return nil
}
