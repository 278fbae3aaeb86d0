package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const alertsEndpoint = "/alerts"

type Alert struct {
	ID          string        `json:"id"`
	Process     string        `json:"process"`
	PID         int32         `json:"pid"`
	UID         int32         `json:"uid"`
	Reasons     string        `json:"reasons"`
	Usage       float64       `json:"usage"`
	LockTime    time.Duration `json:"lock_time"`
	Interactive bool          `json:"interactive"`
	CreatedAt   time.Time     `json:"created_at"`
}

type AlertPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Alerts []Alert `json:"alerts"`
}

func (sdk *guardianSDK) ListAlerts(offset, limit uint64) (AlertPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}
	url := sdk.guardianURL + alertsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return AlertPage{}, err
	}

	var p AlertPage
	if err := json.Unmarshal(body, &p); err != nil {
		return AlertPage{}, err
	}

	return p, nil
}

func (sdk *guardianSDK) ClearAlerts() error {
	_, err := sdk.processRequest(http.MethodDelete, sdk.guardianURL+alertsEndpoint, nil, http.StatusNoContent)

	return err
}
