package http

import (
	"github.com/kjstillabower/classy-weather/internal/display"
	"github.com/kjstillabower/classy-weather/internal/forecast"
	"github.com/kjstillabower/classy-weather/internal/icon"
	"github.com/kjstillabower/classy-weather/internal/models"
)

// placeView is the JSON shape of a resolved place.
type placeView struct {
	Name        string  `json:"name"`
	CountryCode string  `json:"countryCode"`
	DisplayName string  `json:"displayName"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
}

// dayView is one day card.
type dayView struct {
	Date        string  `json:"date"`
	DayName     string  `json:"dayName"`
	IsToday     bool    `json:"isToday"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Code        int     `json:"code"`
	Glyph       string  `json:"glyph"`
	Description string  `json:"description"`
	Range       string  `json:"range"`
}

// forecastView is the JSON and template model of a session state.
type forecastView struct {
	Status   string     `json:"status"`
	Location string     `json:"location"`
	Loading  bool       `json:"loading"`
	Place    *placeView `json:"place,omitempty"`
	Days     []dayView  `json:"days"`
	Reason   string     `json:"reason,omitempty"`
}

func newForecastView(st forecast.State, classifier *icon.Classifier) forecastView {
	v := forecastView{
		Status:   st.Status.String(),
		Location: st.Location,
		Loading:  st.Loading(),
		Reason:   st.Reason,
		Days:     make([]dayView, 0, len(st.Days)),
	}
	if st.Resolved {
		v.Place = &placeView{
			Name:        st.Place.Name,
			CountryCode: st.Place.CountryCode,
			DisplayName: display.PlaceName(st.Place.Name, st.Place.CountryCode),
			Latitude:    st.Place.Latitude,
			Longitude:   st.Place.Longitude,
			Timezone:    st.Place.Timezone,
		}
	}
	for i, d := range st.Days {
		code := icon.Code(d.Code)
		v.Days = append(v.Days, dayView{
			Date:        d.Date.Format(models.DateLayout),
			DayName:     display.DayName(d.Date),
			IsToday:     i == 0,
			Min:         d.TempMin,
			Max:         d.TempMax,
			Code:        d.Code,
			Glyph:       string(classifier.Classify(code)),
			Description: classifier.Describe(code),
			Range:       display.TempRange(d.TempMin, d.TempMax),
		})
	}
	return v
}
