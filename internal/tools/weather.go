package tools

import (
	"context"
	"math"
	"strings"
)

// WeatherSpec describes get_current_weather.
var WeatherSpec = Spec{
	Name:        "get_current_weather",
	Description: "Get the current weather in a given location.",
	Params: []Param{
		{
			Name:        "location",
			Type:        TypeString,
			Description: "The city name, e.g. Dalian or Shanghai",
			Required:    true,
		},
		{
			Name:        "unit",
			Type:        TypeString,
			Description: "Temperature unit",
			Enum:        []string{"celsius", "fahrenheit"},
		},
	},
}

// unknownTemperature is reported for cities without data.
const unknownTemperature = -1

// cityTemperatures holds simulated readings in celsius, keyed by the names a
// user may write for the city.
var cityTemperatures = []struct {
	names   []string
	celsius float64
}{
	{names: []string{"大连", "dalian"}, celsius: 10},
	{names: []string{"上海", "shanghai"}, celsius: 36},
	{names: []string{"深圳", "shenzhen"}, celsius: 37},
}

type weatherArgs struct {
	Location string `arg:"location"`
	Unit     string `arg:"unit"`
}

type weatherReport struct {
	Location    string   `json:"location"`
	Temperature float64  `json:"temperature"`
	Unit        string   `json:"unit"`
	Forecast    []string `json:"forecast"`
}

// CurrentWeather is the simulated weather lookup.
func CurrentWeather(_ context.Context, args Arguments) (string, error) {
	var in weatherArgs
	if err := args.Decode(&in); err != nil {
		return "", err
	}
	if in.Unit == "" {
		in.Unit = "celsius"
	}

	report := weatherReport{
		Location:    in.Location,
		Temperature: unknownTemperature,
		Unit:        in.Unit,
		Forecast:    []string{"sunny", "windy"},
	}

	lower := strings.ToLower(in.Location)
	for _, c := range cityTemperatures {
		for _, name := range c.names {
			if strings.Contains(lower, name) {
				report.Temperature = c.celsius
				if in.Unit == "fahrenheit" {
					report.Temperature = math.Round((c.celsius*9/5+32)*10) / 10
				}
			}
		}
	}
	return marshalPayload(report)
}
