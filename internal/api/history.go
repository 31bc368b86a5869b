package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-digitaltwin/go-scenetwin/databinding"
)

// Sort orders of HistoryRequest.OrderByTime.
const (
	Ascending  = "ASCENDING"
	Descending = "DESCENDING"
)

// HistoryRequest selects the history of some properties of one entity
// component.
type HistoryRequest struct {
	EntityID           string    `json:"entityId"`
	ComponentName      string    `json:"componentName"`
	SelectedProperties []string  `json:"selectedProperties"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	OrderByTime        string    `json:"orderByTime"`
}

// HistoryResponse holds the history of every selected property.
type HistoryResponse struct {
	PropertyValues []PropertyHistory `json:"propertyValues"`
}

// PropertyHistory is the history of one property.
type PropertyHistory struct {
	Reference PropertyReference `json:"entityPropertyReference"`
	Values    []TimedValue      `json:"values"`
}

// PropertyReference identifies a property.
type PropertyReference struct {
	EntityID      string `json:"entityId"`
	ComponentName string `json:"componentName,omitempty"`
	PropertyName  string `json:"propertyName"`
}

// TimedValue is one sample.
type TimedValue struct {
	Time  time.Time `json:"time"`
	Value DataValue `json:"value"`
}

// DataValue carries a sample value in the field matching its type.
type DataValue struct {
	DoubleValue  *float64 `json:"doubleValue,omitempty"`
	BooleanValue *bool    `json:"booleanValue,omitempty"`
	StringValue  *string  `json:"stringValue,omitempty"`
}

func dataValue(v any) DataValue {
	switch v := v.(type) {
	case float64:
		return DataValue{DoubleValue: &v}
	case bool:
		return DataValue{BooleanValue: &v}
	case string:
		return DataValue{StringValue: &v}
	default:
		s, _ := json.Marshal(v)
		str := string(s)
		return DataValue{StringValue: &str}
	}
}

// handleHistory serves the recorded history of the selected properties. A
// request without a time range covers the store's window up to now.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var req HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.EntityID == "" || len(req.SelectedProperties) == 0 {
		writeBadRequest(w, "entityId and selectedProperties are required")
		return
	}
	if req.EndTime.IsZero() {
		req.EndTime = time.Now()
	}
	if req.StartTime.IsZero() {
		req.StartTime = req.EndTime.Add(-s.store.Window())
	}
	if req.EndTime.Before(req.StartTime) {
		writeBadRequest(w, "endTime is before startTime")
		return
	}
	order := strings.ToUpper(req.OrderByTime)
	if order == "" {
		order = Ascending
	}
	if order != Ascending && order != Descending {
		writeBadRequest(w, "orderByTime must be ASCENDING or DESCENDING")
		return
	}

	labels := map[string]string{databinding.EntityID: req.EntityID}
	if req.ComponentName != "" {
		labels[databinding.ComponentName] = req.ComponentName
	}
	resp := HistoryResponse{PropertyValues: make([]PropertyHistory, 0, len(req.SelectedProperties))}
	for _, property := range req.SelectedProperties {
		samples := s.store.History(labels, property, req.StartTime, req.EndTime)
		values := make([]TimedValue, 0, len(samples))
		for _, sample := range samples {
			values = append(values, TimedValue{Time: sample.Time, Value: dataValue(sample.Value)})
		}
		if order == Descending {
			slices.Reverse(values)
		}
		resp.PropertyValues = append(resp.PropertyValues, PropertyHistory{
			Reference: PropertyReference{
				EntityID:      req.EntityID,
				ComponentName: req.ComponentName,
				PropertyName:  property,
			},
			Values: values,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
