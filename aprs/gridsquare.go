package aprs

import (
	"strings"

	"github.com/juju/errors"
)

// GridSquareToLatLon converts a Maidenhead locator ("EM95" or "EM95pb")
// to the latitude and longitude of its center.
func GridSquareToLatLon(grid string) (float64, float64, error) {
	grid = strings.ToUpper(strings.TrimSpace(grid))
	if len(grid) != 4 && len(grid) != 6 {
		return 0, 0, errors.NotValidf("gridsquare %q", grid)
	}
	if grid[0] < 'A' || grid[0] > 'R' || grid[1] < 'A' || grid[1] > 'R' ||
		grid[2] < '0' || grid[2] > '9' || grid[3] < '0' || grid[3] > '9' {
		return 0, 0, errors.NotValidf("gridsquare %q", grid)
	}

	// Field: 20 x 10 degrees
	lon := float64(grid[0]-'A')*20.0 - 180.0
	lat := float64(grid[1]-'A')*10.0 - 90.0

	// Square: 2 x 1 degrees
	lon += float64(grid[2]-'0') * 2.0
	lat += float64(grid[3] - '0')

	if len(grid) == 4 {
		return lat + 0.5, lon + 1.0, nil
	}

	if grid[4] < 'A' || grid[4] > 'X' || grid[5] < 'A' || grid[5] > 'X' {
		return 0, 0, errors.NotValidf("gridsquare %q", grid)
	}
	// Subsquare: 5 x 2.5 minutes, centered
	lon += float64(grid[4]-'A')*(2.0/24.0) + 1.0/24.0
	lat += float64(grid[5]-'A')*(1.0/24.0) + 0.5/24.0

	return lat, lon, nil
}
