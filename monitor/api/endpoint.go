package api

import (
	"context"
	"errors"

	"github.com/absmach/guardian/monitor"
	pkgerrors "github.com/absmach/guardian/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

type statusFunc func(ctx context.Context) (monitor.Status, error)

func statusEndpoint(fn statusFunc) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return statusResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		status, err := fn(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{
			Status: status,
		}, nil
	}
}

func processesEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return processesResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		snap, err := svc.Processes(ctx)
		if err != nil {
			return processesResponse{}, err
		}

		return processesResponse{
			Snapshot: snap,
		}, nil
	}
}

func listAlertsEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listAlertsReq)
		if !ok {
			return alertsPageResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return alertsPageResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListAlerts(ctx, req.offset, req.limit)
		if err != nil {
			return alertsPageResponse{}, err
		}

		return alertsPageResponse{
			Page: page,
		}, nil
	}
}

func clearAlertsEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := svc.ClearAlerts(ctx); err != nil {
			return emptyResponse{}, err
		}

		return emptyResponse{}, nil
	}
}

func listWhitelistEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return whitelistResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		names, err := svc.ListWhitelist(ctx)
		if err != nil {
			return whitelistResponse{}, err
		}

		return whitelistResponse{
			Names: names,
		}, nil
	}
}

func addWhitelistEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(whitelistReq)
		if !ok {
			return whitelistResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return whitelistResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.AddWhitelist(ctx, req.Name); err != nil {
			return whitelistResponse{}, err
		}

		return whitelistResponse{
			Names: []string{req.Name},
			added: true,
		}, nil
	}
}

func removeWhitelistEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(whitelistReq)
		if !ok {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.RemoveWhitelist(ctx, req.Name); err != nil {
			return emptyResponse{}, err
		}

		return emptyResponse{}, nil
	}
}

func locksEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return locksResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		view, err := svc.Locks(ctx)
		if err != nil {
			return locksResponse{}, err
		}

		return locksResponse{
			Locks: view,
		}, nil
	}
}

func releaseLocksEndpoint(svc monitor.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(pidReq)
		if !ok {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return emptyResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.ReleaseLocks(ctx, req.pid); err != nil {
			return emptyResponse{}, err
		}

		return emptyResponse{}, nil
	}
}

func pauseEndpoint(fn func(ctx context.Context, reason string) (monitor.Status, error)) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(pauseReq)
		if !ok {
			return statusResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return statusResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		status, err := fn(ctx, req.id)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{
			Status: status,
		}, nil
	}
}
