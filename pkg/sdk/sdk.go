package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

var ErrUnexpectedCode = errors.New("unexpected response code")

type PageMetadata struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type SDK interface {
	// State returns the monitor state.
	//
	// example:
	//  status, _ := sdk.State()
	//  fmt.Println(status.State)
	State() (Status, error)

	// Start starts the monitor.
	//
	// example:
	//  status, _ := sdk.Start()
	//  fmt.Println(status.State)
	Start() (Status, error)

	// Stop stops the monitor.
	Stop() (Status, error)

	// Restart stops the monitor and starts it again.
	Restart() (Status, error)

	// Processes returns the outcome of the last monitoring cycle.
	//
	// example:
	//  snap, _ := sdk.Processes()
	//  for _, p := range snap.Processes {
	//    fmt.Println(p.Name, p.Usage)
	//  }
	Processes() (Snapshot, error)

	// ListAlerts lists the alert history, newest first.
	//
	// example:
	//  page, _ := sdk.ListAlerts(0, 10)
	//  fmt.Println(page.Total)
	ListAlerts(offset uint64, limit uint64) (AlertPage, error)

	// ClearAlerts empties the alert history.
	ClearAlerts() error

	// Whitelist lists the exempt process names.
	Whitelist() ([]string, error)

	// AddWhitelist exempts a process name from checks.
	//
	// example:
	//  _ := sdk.AddWhitelist("com.example.sync")
	AddWhitelist(name string) error

	// RemoveWhitelist drops a process name from the whitelist.
	RemoveWhitelist(name string) error

	// Locks returns the lock accounting keyed by pid.
	Locks() (map[int32]LockRecord, error)

	// ReleaseLocks force releases every lock held by pid.
	ReleaseLocks(pid int32) error

	// Pause holds the monitor until the reason is resumed.
	//
	// example:
	//  status, _ := sdk.Pause("upgrade")
	//  fmt.Println(status.Paused)
	Pause(reason string) (Status, error)

	// Resume drops a pause reason.
	Resume(reason string) (Status, error)
}

type guardianSDK struct {
	guardianURL string
	client      *http.Client
}

type Config struct {
	GuardianURL     string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &guardianSDK{
		guardianURL: cfg.GuardianURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

type errorRes struct {
	Error string `json:"error"`
}

func (sdk *guardianSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e errorRes
		if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
			return []byte{}, fmt.Errorf("%w: %d: %s", ErrUnexpectedCode, resp.StatusCode, e.Error)
		}

		return []byte{}, fmt.Errorf("%w: %d", ErrUnexpectedCode, resp.StatusCode)
	}

	return body, nil
}
