package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/absmach/guardian/monitor"
	"github.com/absmach/guardian/pkg/api"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	nameKey   = "name"
	pidKey    = "pid"
	reasonKey = "reasonID"
)

func MakeHandler(svc monitor.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/state", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc.State),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "get-state").ServeHTTP)
	mux.Post("/start", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc.Start),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "start").ServeHTTP)
	mux.Post("/stop", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc.Stop),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "stop").ServeHTTP)
	mux.Post("/restart", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc.Restart),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "restart").ServeHTTP)

	mux.Get("/processes", otelhttp.NewHandler(kithttp.NewServer(
		processesEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "list-processes").ServeHTTP)

	mux.Route("/alerts", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listAlertsEndpoint(svc),
			decodeListAlertsReq,
			api.EncodeResponse,
			opts...,
		), "list-alerts").ServeHTTP)
		r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
			clearAlertsEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "clear-alerts").ServeHTTP)
	})

	mux.Route("/whitelist", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listWhitelistEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "list-whitelist").ServeHTTP)
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			addWhitelistEndpoint(svc),
			decodeWhitelistReq,
			api.EncodeResponse,
			opts...,
		), "add-whitelist").ServeHTTP)
		r.Delete("/{name}", otelhttp.NewHandler(kithttp.NewServer(
			removeWhitelistEndpoint(svc),
			decodeWhitelistNameReq,
			api.EncodeResponse,
			opts...,
		), "remove-whitelist").ServeHTTP)
	})

	mux.Route("/locks", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			locksEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "list-locks").ServeHTTP)
		r.Post("/{pid}/release", otelhttp.NewHandler(kithttp.NewServer(
			releaseLocksEndpoint(svc),
			decodePIDReq,
			api.EncodeResponse,
			opts...,
		), "release-locks").ServeHTTP)
	})

	mux.Route("/pause/{reasonID}", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			pauseEndpoint(svc.Pause),
			decodePauseReq,
			api.EncodeResponse,
			opts...,
		), "pause").ServeHTTP)
		r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
			pauseEndpoint(svc.Resume),
			decodePauseReq,
			api.EncodeResponse,
			opts...,
		), "resume").ServeHTTP)
	})

	mux.Get("/health", supermq.Health("guardian", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func decodeListAlertsReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listAlertsReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeWhitelistReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req whitelistReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeWhitelistNameReq(_ context.Context, r *http.Request) (any, error) {
	return whitelistReq{
		Name: chi.URLParam(r, nameKey),
	}, nil
}

func decodePIDReq(_ context.Context, r *http.Request) (any, error) {
	pid, err := strconv.ParseInt(chi.URLParam(r, pidKey), 10, 32)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, errMissingPID)
	}

	return pidReq{
		pid: int32(pid),
	}, nil
}

func decodePauseReq(_ context.Context, r *http.Request) (any, error) {
	return pauseReq{
		id: chi.URLParam(r, reasonKey),
	}, nil
}
