package api

import (
	"errors"

	"github.com/absmach/guardian/pkg/api"
	apiutil "github.com/absmach/supermq/api/http/util"
)

var (
	errLimitSize  = errors.New("limit exceeds maximum size")
	errMissingPID = errors.New("missing or invalid pid")
)

type emptyReq struct{}

type listAlertsReq struct {
	offset, limit uint64
}

func (req *listAlertsReq) validate() error {
	if req.limit > api.MaxLimitSize {
		return errLimitSize
	}

	return nil
}

type whitelistReq struct {
	Name string `json:"name"`
}

func (req *whitelistReq) validate() error {
	if req.Name == "" {
		return apiutil.ErrMissingName
	}

	return nil
}

type pidReq struct {
	pid int32
}

func (req *pidReq) validate() error {
	if req.pid <= 0 {
		return errMissingPID
	}

	return nil
}

type pauseReq struct {
	id string
}

func (req *pauseReq) validate() error {
	if req.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}
