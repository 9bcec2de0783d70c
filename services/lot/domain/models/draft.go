package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NumericText is numeric input as the user typed it. It may not parse.
// JSON numbers and JSON strings both decode into it.
type NumericText string

// UnmarshalJSON accepts "12.5", 12.5 and null.
func (n *NumericText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("numeric text: %w", err)
		}
		*n = NumericText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("numeric text: %w", err)
	}
	*n = NumericText(num.String())
	return nil
}

// String returns the raw text.
func (n NumericText) String() string {
	return string(n)
}

// EstimateDraft is the unvalidated estimate range.
type EstimateDraft struct {
	Low  NumericText `json:"low"`
	High NumericText `json:"high"`
}

// Draft is the editable form state for a lot. Fields are set through typed
// setters; nested estimate fields have their own setters.
type Draft struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Consignor   string        `json:"consignor"`
	Estimate    EstimateDraft `json:"estimate"`
}

// DraftFromItem pre-fills a draft with the current values of item.
func DraftFromItem(item Item) Draft {
	return Draft{
		Title:       item.Title,
		Description: item.Description,
		Consignor:   item.Consignor,
		Estimate: EstimateDraft{
			Low:  NumericText(item.Estimate.Low.String()),
			High: NumericText(item.Estimate.High.String()),
		},
	}
}

func (d *Draft) SetTitle(s string)       { d.Title = s }
func (d *Draft) SetDescription(s string) { d.Description = s }
func (d *Draft) SetConsignor(s string)   { d.Consignor = s }

func (d *Draft) SetEstimateLow(s string)  { d.Estimate.Low = NumericText(s) }
func (d *Draft) SetEstimateHigh(s string) { d.Estimate.High = NumericText(s) }

// Apply merges the draft's content into item, keeping ID, SaleNumber and
// Status. est must be the estimate parsed from this draft.
func (d Draft) Apply(item Item, est Estimate) Item {
	item.Title = d.Title
	item.Description = d.Description
	item.Consignor = d.Consignor
	item.Estimate = est
	return item
}
