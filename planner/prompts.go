package planner

import (
	"fmt"
	"strings"
)

// itinerarySystemPrompt pins the exact JSON schema the synthesis model
// must return. The tolerant parser downstream copes with fencing and
// minor formatting defects, but the schema itself is non-negotiable.
const itinerarySystemPrompt = `You are a travel itinerary expert. Your task is to generate a detailed trip plan from the attraction, weather, and hotel information provided.

Return the plan strictly in the following JSON format:
` + "```json" + `
{
  "city": "city name",
  "start_date": "YYYY-MM-DD",
  "end_date": "YYYY-MM-DD",
  "days": [
    {
      "date": "YYYY-MM-DD",
      "day_index": 0,
      "description": "day 1 overview",
      "transportation": "mode of transport",
      "accommodation": "lodging type",
      "hotel": {
        "name": "hotel name",
        "address": "hotel address",
        "location": {"longitude": 116.397128, "latitude": 39.916527},
        "price_range": "300-500",
        "rating": "4.5",
        "distance": "2km from attractions",
        "type": "budget hotel",
        "estimated_cost": 400
      },
      "attractions": [
        {
          "name": "attraction name",
          "address": "full address",
          "location": {"longitude": 116.397128, "latitude": 39.916527},
          "visit_duration": 120,
          "description": "detailed description",
          "category": "attraction category",
          "ticket_price": 60
        }
      ],
      "meals": [
        {"type": "breakfast", "name": "breakfast pick", "description": "description", "estimated_cost": 30},
        {"type": "lunch", "name": "lunch pick", "description": "description", "estimated_cost": 50},
        {"type": "dinner", "name": "dinner pick", "description": "description", "estimated_cost": 80}
      ]
    }
  ],
  "weather_info": [
    {
      "date": "YYYY-MM-DD",
      "day_weather": "sunny",
      "night_weather": "cloudy",
      "day_temp": 25,
      "night_temp": 15,
      "wind_direction": "south",
      "wind_power": "1-3"
    }
  ],
  "overall_suggestions": "general advice",
  "budget": {
    "total_attractions": 180,
    "total_hotels": 1200,
    "total_meals": 480,
    "total_transportation": 200,
    "total": 2060
  }
}
` + "```" + `

Rules:
1. weather_info must cover every day of the trip
2. temperatures are plain numbers without units
3. schedule 2-3 attractions per day, considering distances and visit times
4. every day includes breakfast, lunch, and dinner
5. recommend one concrete hotel per day, chosen from the hotel information
6. include the full budget breakdown (ticket prices, meal and hotel costs, totals)
7. provide practical overall suggestions`

// buildItineraryPrompt assembles the synthesis query from the request and
// the three settled upstream slots.
func buildItineraryPrompt(req *TripRequest, attractions, weather, lodging string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a %d-day trip plan for %s from the information below:\n\n", req.TravelDays, req.City)

	b.WriteString("**Basic information:**\n")
	fmt.Fprintf(&b, "- City: %s\n", req.City)
	fmt.Fprintf(&b, "- Dates: %s to %s\n", req.StartDate, req.EndDate)
	fmt.Fprintf(&b, "- Days: %d\n", req.TravelDays)
	fmt.Fprintf(&b, "- Transportation: %s\n", req.Transportation)
	fmt.Fprintf(&b, "- Accommodation: %s\n", req.Accommodation)
	preferences := "none"
	if len(req.Preferences) > 0 {
		preferences = strings.Join(req.Preferences, ", ")
	}
	fmt.Fprintf(&b, "- Preferences: %s\n", preferences)

	b.WriteString("\n**Attraction information:**\n")
	b.WriteString(attractions)
	b.WriteString("\n\n**Weather information:**\n")
	b.WriteString(weather)
	b.WriteString("\n\n**Hotel information:**\n")
	b.WriteString(lodging)

	b.WriteString("\n\n**Requirements:**\n")
	b.WriteString("1. Schedule 2-3 attractions per day\n")
	b.WriteString("2. Include breakfast, lunch, and dinner every day\n")
	b.WriteString("3. Recommend one concrete hotel per day from the hotel information\n")
	b.WriteString("4. Account for distances between attractions and the transport mode\n")
	b.WriteString("5. Return complete JSON as specified\n")

	if req.FreeTextInput != "" {
		fmt.Fprintf(&b, "\n**Additional requirements:** %s\n", req.FreeTextInput)
	}

	return b.String()
}
