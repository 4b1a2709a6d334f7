package sword

import (
	"encoding/xml"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/pkp/pln/stats"
)

// maxRequestBody caps the size of a deposit request. The package
// itself is harvested later; the request only describes it.
const maxRequestBody = 1 << 20

// Operation names, as recorded in metrics.
const (
	OpServiceDocument = "service-document"
	OpCreateDeposit   = "create-deposit"
	OpStatement       = "statement"
	OpEditDeposit     = "edit-deposit"
	OpFetchOriginal   = "fetch-original"
	OpRateLimited     = "rate-limited"
)

type handler struct {
	service   *Service
	collector *stats.Collector
}

// NewRouter mounts the SWORD endpoints under ApiPrefix and the
// Prometheus endpoint at /metrics. limiter may be nil.
func NewRouter(service *Service, limiter *RateLimiter) http.Handler {
	h := &handler{
		service:   service,
		collector: service.Context.Collector,
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", stats.Handler(service.Context.Registry))
	r.Route(ApiPrefix, func(r chi.Router) {
		r.Use(h.rateLimit(limiter))
		r.Get("/sd-iri", h.serviceDocument)
		r.Post("/col-iri/{provider}", h.createDeposit)
		r.Get("/cont-iri/{provider}/{deposit}/state", h.statement)
		r.Put("/cont-iri/{provider}/{deposit}/edit", h.editDeposit)
		r.Get("/original/{provider}/{deposit}", h.fetchOriginal)
	})
	return r
}

func (h *handler) rateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIp(r)
			if !limiter.Allow(ip) {
				h.service.Context.MessageLog.Warning("rate limit exceeded - %s - %s", ip, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				h.writeError(w, OpRateLimited, http.StatusTooManyRequests,
					errors.New("Too many requests. Please try again later."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// fetchHeader looks for name as a header, as an X- header and as a
// query parameter, in that order.
func fetchHeader(r *http.Request, name string) string {
	if value := r.Header.Get(name); value != "" {
		return value
	}
	if value := r.Header.Get("X-" + name); value != "" {
		return value
	}
	return r.URL.Query().Get(name)
}

func clientIp(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := ioutil.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, newError(ErrBadRequest, "Cannot read request body: %v", err)
	}
	if len(body) > maxRequestBody {
		return nil, newError(ErrBadRequest, "Request body is larger than %d bytes.", maxRequestBody)
	}
	return body, nil
}

func (h *handler) serviceDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.ServiceDocument(fetchHeader(r, "On-Behalf-Of"), fetchHeader(r, "Journal-Url"), clientIp(r))
	if err != nil {
		h.writeError(w, OpServiceDocument, StatusFor(err), err)
		return
	}
	h.writeXml(w, OpServiceDocument, http.StatusOK, doc)
}

func (h *handler) createDeposit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, OpCreateDeposit, StatusFor(err), err)
		return
	}
	receipt, err := h.service.CreateDeposit(chi.URLParam(r, "provider"), body, clientIp(r))
	if err != nil {
		h.writeError(w, OpCreateDeposit, StatusFor(err), err)
		return
	}
	w.Header().Set("Location", receipt.Location)
	h.writeXml(w, OpCreateDeposit, http.StatusCreated, receipt.Statement)
}

func (h *handler) statement(w http.ResponseWriter, r *http.Request) {
	statement, err := h.service.Statement(chi.URLParam(r, "provider"), chi.URLParam(r, "deposit"), clientIp(r))
	if err != nil {
		h.writeError(w, OpStatement, StatusFor(err), err)
		return
	}
	h.writeXml(w, OpStatement, http.StatusOK, statement)
}

func (h *handler) editDeposit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, OpEditDeposit, StatusFor(err), err)
		return
	}
	receipt, err := h.service.EditDeposit(chi.URLParam(r, "provider"), chi.URLParam(r, "deposit"), body, clientIp(r))
	if err != nil {
		h.writeError(w, OpEditDeposit, StatusFor(err), err)
		return
	}
	w.Header().Set("Location", receipt.Location)
	h.writeXml(w, OpEditDeposit, http.StatusCreated, receipt.Statement)
}

func (h *handler) fetchOriginal(w http.ResponseWriter, r *http.Request) {
	original, err := h.service.FetchOriginal(chi.URLParam(r, "provider"), chi.URLParam(r, "deposit"), clientIp(r))
	if err != nil {
		h.writeError(w, OpFetchOriginal, StatusFor(err), err)
		return
	}
	defer original.Reader.Close()
	w.Header().Set("Content-Type", "application/x-tar")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", original.Name))
	if original.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(original.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	h.collector.RecordSwordRequest(OpFetchOriginal, strconv.Itoa(http.StatusOK))
	if _, err = io.Copy(w, original.Reader); err != nil {
		h.service.Context.MessageLog.Error("Sending deposit %s to %s failed: %v",
			original.Name, clientIp(r), err)
	}
}

func (h *handler) writeXml(w http.ResponseWriter, operation string, status int, doc interface{}) {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		h.writeError(w, operation, http.StatusInternalServerError,
			errors.Wrap(err, "Cannot render response"))
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	w.Write([]byte(xml.Header))
	w.Write(data)
	h.collector.RecordSwordRequest(operation, strconv.Itoa(status))
}

func (h *handler) writeError(w http.ResponseWriter, operation string, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.service.Context.MessageLog.Error("%s failed: %v", operation, err)
	}
	data, _ := xml.MarshalIndent(NewErrorDocument(status, err), "", "  ")
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	w.Write([]byte(xml.Header))
	w.Write(data)
	h.collector.RecordSwordRequest(operation, strconv.Itoa(status))
}
