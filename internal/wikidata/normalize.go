// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package wikidata

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	unknownValue = "unknown value"
	noValue      = "no value"
)

type snak struct {
	SnakType  string          `json:"snaktype"`
	Property  string          `json:"property"`
	DataValue json.RawMessage `json:"datavalue"`
}

type statement struct {
	ID       string `json:"id"`
	MainSnak snak   `json:"mainsnak"`
}

type dataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type entityValue struct {
	ID        string `json:"id"`
	NumericID int64  `json:"numeric-id"`
}

type timeValue struct {
	Time      string `json:"time"`
	Precision int    `json:"precision"`
}

type monolingualValue struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type quantityValue struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

type coordinateValue struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// normalized is the dual encoding of a claim value.
type normalized struct {
	ValueID     string
	ValueText   string
	DisplayText string
	// EntityRef is the referenced entity of an entity-valued claim, used to
	// resolve its label.
	EntityRef string
}

// normalize converts a main snak of property pid into value id and text.
func normalize(pid string, s snak) normalized {
	switch s.SnakType {
	case "somevalue":
		return normalized{ValueText: unknownValue, DisplayText: unknownValue}
	case "novalue":
		return normalized{ValueText: noValue, DisplayText: noValue}
	}
	if len(s.DataValue) == 0 {
		return normalized{}
	}

	var dv dataValue
	if err := json.Unmarshal(s.DataValue, &dv); err != nil {
		return normalized{}
	}

	switch dv.Type {
	case "wikibase-entityid":
		var ev entityValue
		if err := json.Unmarshal(dv.Value, &ev); err != nil {
			return normalized{}
		}
		id := ev.ID
		if id == "" && ev.NumericID > 0 {
			id = "Q" + strconv.FormatInt(ev.NumericID, 10)
		}
		return normalized{ValueID: id, ValueText: id, DisplayText: id, EntityRef: id}

	case "time":
		var tv timeValue
		if err := json.Unmarshal(dv.Value, &tv); err != nil {
			return normalized{}
		}
		iso := strings.TrimPrefix(tv.Time, "+")
		display := iso
		if date, ok := strings.CutSuffix(iso, "T00:00:00Z"); ok {
			display = date
		}
		return normalized{ValueID: pid + ":" + iso, ValueText: iso, DisplayText: display}

	case "monolingualtext":
		var mv monolingualValue
		if err := json.Unmarshal(dv.Value, &mv); err != nil {
			return normalized{}
		}
		return normalized{ValueText: mv.Text, DisplayText: mv.Text}

	case "quantity":
		var qv quantityValue
		if err := json.Unmarshal(dv.Value, &qv); err != nil {
			return normalized{}
		}
		text := strings.TrimPrefix(qv.Amount, "+")
		if unit := unitID(qv.Unit); unit != "" {
			text += " " + unit
		}
		return normalized{ValueText: text, DisplayText: text}

	case "globecoordinate":
		var cv coordinateValue
		if err := json.Unmarshal(dv.Value, &cv); err != nil {
			return normalized{}
		}
		text := strconv.FormatFloat(cv.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(cv.Longitude, 'f', -1, 64)
		return normalized{ValueText: text, DisplayText: text}

	default:
		// string, external-id, url, commonsMedia and other plain values.
		var str string
		if err := json.Unmarshal(dv.Value, &str); err != nil {
			return normalized{ValueText: string(dv.Value), DisplayText: string(dv.Value)}
		}
		return normalized{ValueText: str, DisplayText: str}
	}
}

// unitID turns a unit entity URI into its QID; "1" means dimensionless.
func unitID(unit string) string {
	if unit == "" || unit == "1" {
		return ""
	}
	if i := strings.LastIndex(unit, "/"); i >= 0 {
		return unit[i+1:]
	}
	return unit
}
