package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	whitelistEndpoint = "/whitelist"
	locksEndpoint     = "/locks"
)

type whitelistRes struct {
	Names []string `json:"names"`
}

type Lock struct {
	Handle    string        `json:"handle"`
	Tag       string        `json:"tag"`
	PID       int32         `json:"pid"`
	Flags     uint32        `json:"flags"`
	Timestamp time.Time     `json:"timestamp"`
	Held      time.Duration `json:"held"`
}

type LockRecord struct {
	PID            int32         `json:"pid"`
	UID            int32         `json:"uid"`
	Interactive    time.Duration `json:"interactive"`
	NonInteractive time.Duration `json:"non_interactive"`
	Locks          []Lock        `json:"locks,omitempty"`
}

type locksRes struct {
	Locks map[int32]LockRecord `json:"locks"`
}

func (sdk *guardianSDK) Whitelist() ([]string, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.guardianURL+whitelistEndpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var res whitelistRes
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}

	return res.Names, nil
}

func (sdk *guardianSDK) AddWhitelist(name string) error {
	data, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return err
	}

	_, err = sdk.processRequest(http.MethodPost, sdk.guardianURL+whitelistEndpoint, data, http.StatusCreated)

	return err
}

func (sdk *guardianSDK) RemoveWhitelist(name string) error {
	reqURL := sdk.guardianURL + whitelistEndpoint + "/" + url.PathEscape(name)
	_, err := sdk.processRequest(http.MethodDelete, reqURL, nil, http.StatusNoContent)

	return err
}

func (sdk *guardianSDK) Locks() (map[int32]LockRecord, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.guardianURL+locksEndpoint, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var res locksRes
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}

	return res.Locks, nil
}

func (sdk *guardianSDK) ReleaseLocks(pid int32) error {
	reqURL := fmt.Sprintf("%s%s/%d/release", sdk.guardianURL, locksEndpoint, pid)
	_, err := sdk.processRequest(http.MethodPost, reqURL, nil, http.StatusNoContent)

	return err
}
