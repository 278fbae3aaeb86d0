package api

import (
	"net/http"

	"github.com/absmach/guardian/monitor"
	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/locks"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*statusResponse)(nil)
	_ supermq.Response = (*processesResponse)(nil)
	_ supermq.Response = (*alertsPageResponse)(nil)
	_ supermq.Response = (*whitelistResponse)(nil)
	_ supermq.Response = (*locksResponse)(nil)
	_ supermq.Response = (*emptyResponse)(nil)
)

type statusResponse struct {
	monitor.Status
}

func (res statusResponse) Code() int {
	return http.StatusOK
}

func (res statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res statusResponse) Empty() bool {
	return false
}

type processesResponse struct {
	monitor.Snapshot
}

func (res processesResponse) Code() int {
	return http.StatusOK
}

func (res processesResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res processesResponse) Empty() bool {
	return false
}

type alertsPageResponse struct {
	alert.Page
}

func (res alertsPageResponse) Code() int {
	return http.StatusOK
}

func (res alertsPageResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res alertsPageResponse) Empty() bool {
	return false
}

type whitelistResponse struct {
	Names []string `json:"names"`
	added bool
}

func (res whitelistResponse) Code() int {
	if res.added {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (res whitelistResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res whitelistResponse) Empty() bool {
	return false
}

type locksResponse struct {
	Locks locks.View `json:"locks"`
}

func (res locksResponse) Code() int {
	return http.StatusOK
}

func (res locksResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res locksResponse) Empty() bool {
	return false
}

type emptyResponse struct{}

func (res emptyResponse) Code() int {
	return http.StatusNoContent
}

func (res emptyResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res emptyResponse) Empty() bool {
	return true
}
