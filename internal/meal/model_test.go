package meal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_UnmarshalJSON(t *testing.T) {
	body := `{"meals":[{"idMeal":"52767","strMeal":"Pad Thai","strMealThumb":"https://www.themealdb.com/images/media/meals/uuuspp1468263334.jpg"}]}`

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	require.Len(t, resp.Meals, 1)
	assert.Equal(t, Meal{
		ID:        "52767",
		Name:      "Pad Thai",
		Thumbnail: "https://www.themealdb.com/images/media/meals/uuuspp1468263334.jpg",
	}, resp.Meals[0])
}

func TestResponse_UnmarshalJSON_NullMeals(t *testing.T) {
	for _, body := range []string{`{"meals":null}`, `{}`} {
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(body), &resp), body)
		assert.NotNil(t, resp.Meals, body)
		assert.Empty(t, resp.Meals, body)
	}
}

func TestResponse_UnmarshalJSON_Malformed(t *testing.T) {
	var resp Response
	assert.Error(t, json.Unmarshal([]byte(`{"meals":"nope"}`), &resp))
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		tag  string
		want Area
	}{
		{"Thai", Thai},
		{"indian", Indian},
		{" BRITISH ", British},
		{"russian", Russian},
	}
	for _, tt := range tests {
		got, err := ParseArea(tt.tag)
		require.NoError(t, err, tt.tag)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseArea("Martian")
	assert.ErrorIs(t, err, ErrUnknownArea)
}

func TestAreas_Order(t *testing.T) {
	assert.Equal(t, []Area{Indian, Canadian, American, Thai, British, Russian}, Areas())
}
