package sdk

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

const (
	stateEndpoint     = "/state"
	startEndpoint     = "/start"
	stopEndpoint      = "/stop"
	restartEndpoint   = "/restart"
	processesEndpoint = "/processes"
	pauseEndpoint     = "/pause"
)

type Status struct {
	State    string        `json:"state"`
	Engine   string        `json:"engine"`
	Interval time.Duration `json:"interval"`
	Paused   []string      `json:"paused,omitempty"`
}

type Process struct {
	PID            int32         `json:"pid"`
	UID            int32         `json:"uid"`
	Name           string        `json:"name"`
	Kind           string        `json:"kind"`
	Classification int32         `json:"classification"`
	Usage          float64       `json:"usage"`
	AverageUsage   float64       `json:"average_usage"`
	LockTime       time.Duration `json:"lock_time,omitempty"`
}

type Candidate struct {
	Sample    Process       `json:"sample"`
	Reasons   string        `json:"reasons"`
	Usage     float64       `json:"usage"`
	LockTime  time.Duration `json:"lock_time"`
	CPUCount  int           `json:"cpu_count"`
	LockCount int           `json:"lock_count"`
}

type Snapshot struct {
	Timestamp   time.Time   `json:"timestamp"`
	Error       string      `json:"error,omitempty"`
	SystemUsage float64     `json:"system_usage"`
	Interactive bool        `json:"interactive"`
	Processes   []Process   `json:"processes"`
	Candidates  []Candidate `json:"candidates"`
	Alerts      []Alert     `json:"alerts"`
}

func (sdk *guardianSDK) State() (Status, error) {
	return sdk.status(http.MethodGet, sdk.guardianURL+stateEndpoint)
}

func (sdk *guardianSDK) Start() (Status, error) {
	return sdk.status(http.MethodPost, sdk.guardianURL+startEndpoint)
}

func (sdk *guardianSDK) Stop() (Status, error) {
	return sdk.status(http.MethodPost, sdk.guardianURL+stopEndpoint)
}

func (sdk *guardianSDK) Restart() (Status, error) {
	return sdk.status(http.MethodPost, sdk.guardianURL+restartEndpoint)
}

func (sdk *guardianSDK) Pause(reason string) (Status, error) {
	return sdk.status(http.MethodPost, sdk.guardianURL+pauseEndpoint+"/"+url.PathEscape(reason))
}

func (sdk *guardianSDK) Resume(reason string) (Status, error) {
	return sdk.status(http.MethodDelete, sdk.guardianURL+pauseEndpoint+"/"+url.PathEscape(reason))
}

func (sdk *guardianSDK) Processes() (Snapshot, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.guardianURL+processesEndpoint, nil, http.StatusOK)
	if err != nil {
		return Snapshot{}, err
	}

	var s Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return Snapshot{}, err
	}

	return s, nil
}

func (sdk *guardianSDK) status(method, reqURL string) (Status, error) {
	body, err := sdk.processRequest(method, reqURL, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}
