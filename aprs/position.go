package aprs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// maxPositionComment is the longest comment after a plain position report.
const maxPositionComment = 43

// locationRegex matches DDmm.mmH<table>DDDmm.mmH. Spaces in the minutes are
// position ambiguity.
// 1: lat_deg, 2: lat_min, 3: lat_dir, 4: symbol table,
// 5: lon_deg, 6: lon_min, 7: lon_dir
var locationRegex = regexp.MustCompile(
	`^(\d{2})([0-9 ]{2}\.[0-9 ]{2})([NnSs])` +
		`([\/\\0-9A-Z])` +
		`(\d{3})([0-9 ]{2}\.[0-9 ]{2})([EeWw])`,
)

// Location renders decimal degrees as DDmm.mmN/DDDmm.mmW. Inputs are
// clamped to [-90,90] and [-180,180].
func Location(lat, lon float64) string {
	latStr, lonStr := latLonParts(lat, lon)
	return latStr + "/" + lonStr
}

func latLonParts(lat, lon float64) (string, string) {
	lat = clamp(lat, -90, 90)
	lon = clamp(lon, -180, 180)

	latDir, lonDir := 'N', 'E'
	if lat < 0 {
		latDir = 'S'
	}
	if lon < 0 {
		lonDir = 'W'
	}
	latDeg, latMin := degMin(math.Abs(lat))
	lonDeg, lonMin := degMin(math.Abs(lon))

	return fmt.Sprintf("%02d%05.2f%c", latDeg, latMin, latDir),
		fmt.Sprintf("%03d%05.2f%c", lonDeg, lonMin, lonDir)
}

// degMin splits v into whole degrees and minutes rounded to hundredths,
// carrying a rounded 60.00 into the degrees.
func degMin(v float64) (int, float64) {
	deg := math.Floor(v)
	min := math.Round((v-deg)*60*100) / 100
	if min >= 60 {
		deg++
		min = 0
	}
	return int(deg), min
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ParseLocation is the inverse of Location. Any symbol table character is
// accepted between the two halves.
func ParseLocation(s string) (float64, float64, error) {
	matches := locationRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, 0, errors.NotValidf("location %q", s)
	}

	lat, err := parseLat(matches[1], matches[2], matches[3])
	if err != nil {
		return 0, 0, errors.Annotate(err, "latitude")
	}
	lon, err := parseLon(matches[5], matches[6], matches[7])
	if err != nil {
		return 0, 0, errors.Annotate(err, "longitude")
	}
	return lat, lon, nil
}

// parseLat converts APRS latitude (DDMM.hhN) to decimal degrees.
func parseLat(degStr, minStr, dirStr string) (float64, error) {
	decDeg, err := parseDegMin(degStr, minStr)
	if err != nil {
		return 0, err
	}
	switch dirStr {
	case "N", "n":
	case "S", "s":
		decDeg = -decDeg
	default:
		return 0, errors.NotValidf("latitude hemisphere %q", dirStr)
	}
	return decDeg, nil
}

// parseLon converts APRS longitude (DDDMM.hhW) to decimal degrees.
func parseLon(degStr, minStr, dirStr string) (float64, error) {
	decDeg, err := parseDegMin(degStr, minStr)
	if err != nil {
		return 0, err
	}
	switch dirStr {
	case "E", "e":
	case "W", "w":
		decDeg = -decDeg
	default:
		return 0, errors.NotValidf("longitude hemisphere %q", dirStr)
	}
	return decDeg, nil
}

func parseDegMin(degStr, minStr string) (float64, error) {
	// ambiguity spaces are centered on the box
	minStr = strings.ReplaceAll(minStr, " ", "5")

	deg, err := strconv.ParseFloat(degStr, 64)
	if err != nil {
		return 0, errors.Trace(err)
	}
	min, err := strconv.ParseFloat(minStr, 64)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return deg + min/60.0, nil
}

// Symbol is an APRS table/code pair, e.g. {'/', '-'} for a house.
type Symbol struct {
	Table byte
	Code  byte
}

// FormatPosition renders a position report without timestamp:
//
//	CALL>APRS,TCPIP*:!DDmm.mmN/DDDmm.mmW-comment
func FormatPosition(call string, lat, lon float64, sym Symbol, comment string) string {
	latStr, lonStr := latLonParts(lat, lon)
	if len(comment) > maxPositionComment {
		comment = comment[:maxPositionComment]
	}
	return call + tcpipPath + "!" + latStr + string(sym.Table) + lonStr + string(sym.Code) + comment
}
