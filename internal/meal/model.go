package meal

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnknownArea is returned when a cuisine tag is not one of the browsable areas.
var ErrUnknownArea = errors.New("unknown area")

// Meal represents a recipe as returned by TheMealDB list endpoints.
type Meal struct {
	ID        string `json:"idMeal"`
	Name      string `json:"strMeal"`
	Thumbnail string `json:"strMealThumb"`
}

// Response is the envelope TheMealDB wraps every meal list in.
type Response struct {
	Meals []Meal `json:"meals"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for Response.
// A null or missing meals field decodes to an empty list.
func (r *Response) UnmarshalJSON(data []byte) error {
	type Alias Response // Create an alias to avoid infinite recursion
	aux := (*Alias)(r)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if r.Meals == nil {
		r.Meals = []Meal{}
	}
	return nil
}

// Area is a cuisine tag understood by the filter endpoint.
type Area string

// Browsable areas, in the order the UI shows them.
const (
	Indian   Area = "Indian"
	Canadian Area = "Canadian"
	American Area = "American"
	Thai     Area = "Thai"
	British  Area = "British"
	Russian  Area = "Russian"
)

// DefaultArea is loaded when a view is first rendered.
const DefaultArea = Indian

var areas = []Area{Indian, Canadian, American, Thai, British, Russian}

// Areas returns the browsable areas in display order.
func Areas() []Area {
	out := make([]Area, len(areas))
	copy(out, areas)
	return out
}

// ParseArea returns the canonical Area for tag, ignoring case.
func ParseArea(tag string) (Area, error) {
	tag = strings.TrimSpace(tag)
	for _, a := range areas {
		if strings.EqualFold(string(a), tag) {
			return a, nil
		}
	}
	return "", ErrUnknownArea
}

func (a Area) String() string {
	return string(a)
}
